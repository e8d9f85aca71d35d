package indexer

import (
	"context"
	"fmt"
	"log"

	"github.com/localcode/codescope/internal/merkle"
)

// Driver wraps an Indexer with Merkle-tree change detection: load the
// prior snapshot, build the new tree, fast-path on matching roots,
// otherwise diff and process added/modified/deleted before saving the new
// snapshot.
type Driver struct {
	indexer      *Indexer
	snapshotPath string
}

// NewDriver wraps indexer with change detection, persisting snapshots at
// snapshotPath (see config.Paths.SnapshotPath).
func NewDriver(indexer *Indexer, snapshotPath string) *Driver {
	return &Driver{indexer: indexer, snapshotPath: snapshotPath}
}

// IndexWithChangeDetection is the main entry point: load the prior
// snapshot, build the current tree, and either fast-return unchanged, run a
// full first-time index, or process the precise diff.
func (d *Driver) IndexWithChangeDetection(ctx context.Context, dir string) (Stats, []FileError, error) {
	oldTree, err := merkle.Load(d.snapshotPath, dir)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("driver: load snapshot: %w", err)
	}

	newTree, err := merkle.Build(dir)
	if err != nil {
		return Stats{}, nil, fmt.Errorf("driver: build tree: %w", err)
	}

	var stats Stats
	var fileErrs []FileError

	switch {
	case oldTree == nil:
		log.Printf("indexer: no previous snapshot for %s, performing full index", dir)
		stats, fileErrs, err = d.indexer.IndexDirectory(ctx, dir)
	case !newTree.HasChanges(oldTree):
		// The trees are equal, so the on-disk snapshot is already current.
		log.Printf("indexer: merkle roots match for %s, nothing to do", dir)
		return Unchanged(newTree.FileCount()), nil, nil
	default:
		stats, fileErrs, err = d.incrementalUpdate(ctx, oldTree, newTree)
	}
	if err != nil {
		return stats, fileErrs, err
	}

	if err := newTree.Save(d.snapshotPath); err != nil {
		return stats, fileErrs, fmt.Errorf("driver: save snapshot: %w", err)
	}
	return stats, fileErrs, nil
}

// incrementalUpdate diffs oldTree against newTree and applies only the
// changed files: deletions first, then modifications (delete-then-reindex,
// since a symbol's chunk ids are regenerated on every reindex), then
// additions.
func (d *Driver) incrementalUpdate(ctx context.Context, oldTree, newTree *merkle.Tree) (Stats, []FileError, error) {
	changes := newTree.Diff(oldTree)
	if changes.IsEmpty() {
		log.Printf("indexer: no file-level changes detected")
		return Unchanged(newTree.FileCount()), nil, nil
	}

	log.Printf("indexer: detected %d added, %d modified, %d deleted",
		len(changes.Added), len(changes.Modified), len(changes.Deleted))

	var stats Stats
	var fileErrs []FileError

	for _, path := range changes.Deleted {
		if err := d.indexer.DeleteFile(ctx, path); err != nil {
			return stats, fileErrs, fmt.Errorf("driver: delete %s: %w", path, err)
		}
		stats.SkippedFiles++
	}

	for _, path := range changes.Modified {
		if err := d.indexer.DeleteFile(ctx, path); err != nil {
			return stats, fileErrs, fmt.Errorf("driver: delete stale chunks for %s: %w", path, err)
		}
		indexed, chunks, ferr, err := d.indexer.IndexFile(ctx, path)
		if err != nil {
			return stats, fileErrs, fmt.Errorf("driver: reindex %s: %w", path, err)
		}
		if ferr != nil {
			fileErrs = append(fileErrs, *ferr)
			stats.SkippedFiles++
			continue
		}
		if indexed {
			stats.IndexedFiles++
			stats.TotalChunks += chunks
		} else {
			stats.SkippedFiles++
		}
	}

	for _, path := range changes.Added {
		indexed, chunks, ferr, err := d.indexer.IndexFile(ctx, path)
		if err != nil {
			return stats, fileErrs, fmt.Errorf("driver: index new file %s: %w", path, err)
		}
		if ferr != nil {
			fileErrs = append(fileErrs, *ferr)
			stats.SkippedFiles++
			continue
		}
		if indexed {
			stats.IndexedFiles++
			stats.TotalChunks += chunks
		} else {
			stats.SkippedFiles++
		}
	}

	stats.TotalFiles = newTree.FileCount()

	if err := d.indexer.Commit(); err != nil {
		return stats, fileErrs, fmt.Errorf("driver: commit: %w", err)
	}

	log.Printf("indexer: incremental update complete: %d files indexed, %d chunks",
		stats.IndexedFiles, stats.TotalChunks)
	return stats, fileErrs, nil
}

// ForceReindex clears every derived store and the Merkle snapshot, then
// performs a full from-scratch index, used when a caller wants a
// guaranteed-clean slate.
func (d *Driver) ForceReindex(ctx context.Context, dir string) (Stats, []FileError, error) {
	if err := d.indexer.ClearAllData(ctx); err != nil {
		return Stats{}, nil, fmt.Errorf("driver: clear all data: %w", err)
	}
	if err := merkle.RemoveSnapshot(d.snapshotPath); err != nil {
		return Stats{}, nil, fmt.Errorf("driver: remove snapshot: %w", err)
	}
	return d.IndexWithChangeDetection(ctx, dir)
}
