package indexer

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localcode/codescope/internal/chunker"
	"github.com/localcode/codescope/internal/embedder"
	"github.com/localcode/codescope/internal/hasher"
	"github.com/localcode/codescope/internal/lexical"
	"github.com/localcode/codescope/internal/merkle"
	"github.com/localcode/codescope/internal/metacache"
	"github.com/localcode/codescope/internal/parser"
	"github.com/localcode/codescope/internal/vector"
)

// Config tunes the unified indexer's resource usage.
type Config struct {
	// MaxFileSizeBytes rejects (Skipped) any file larger than this.
	MaxFileSizeBytes int64
	// EmbedBatchSize is the batch size passed to the embedder.
	EmbedBatchSize int
	// ParseConcurrency bounds the number of files parsed/chunked in
	// parallel; 0 derives it from available cores.
	ParseConcurrency int
	Chunker          chunker.Config
}

// DefaultConfig returns codescope's built-in indexer defaults.
func DefaultConfig() Config {
	return Config{
		MaxFileSizeBytes: 5 * 1024 * 1024,
		EmbedBatchSize:   128,
		Chunker:          chunker.DefaultConfig(),
	}
}

func (c Config) parseConcurrency() int {
	if c.ParseConcurrency > 0 {
		return c.ParseConcurrency
	}
	// capped so a huge machine does not blow up peak batch memory
	n := runtime.NumCPU()
	if n > 100 {
		n = 100
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Indexer orchestrates the metadata cache, parser, chunker, embedder, and
// the two stores into a batched pipeline: parallel parse/chunk, pooled
// sequential embedding, then one dual-store write and commit per batch.
type Indexer struct {
	cfg      Config
	cache    *metacache.Cache
	lex      *lexical.Index
	vec      *vector.Store
	embedder embedder.Provider
}

// New constructs an Indexer over already-opened backing stores.
func New(cfg Config, cache *metacache.Cache, lex *lexical.Index, vec *vector.Store, emb embedder.Provider) *Indexer {
	return &Indexer{cfg: cfg, cache: cache, lex: lex, vec: vec, embedder: emb}
}

// fileJob is the input to one parallel parse/chunk task.
type fileJob struct {
	path    string
	content []byte
}

// processedFile is the output of one parallel parse/chunk task.
type processedFile struct {
	path    string
	content []byte
	chunks  []chunker.CodeChunk
}

// IndexDirectory performs a full, from-scratch index of every eligible file
// under dir, in parallel batches.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (Stats, []FileError, error) {
	jobs, unchanged, fileErrs, err := ix.collectAndGate(dir)
	if err != nil {
		return Stats{}, nil, err
	}

	stats := Stats{
		TotalFiles:     len(jobs) + unchanged + len(fileErrs),
		UnchangedFiles: unchanged,
		SkippedFiles:   len(fileErrs),
	}

	if len(jobs) == 0 {
		return stats, fileErrs, nil
	}

	batchSize := ix.cfg.parseConcurrency()
	if batchSize > 100 {
		batchSize = 100
	}

	for start := 0; start < len(jobs); start += batchSize {
		if err := ix.memoryGuard(ctx); err != nil {
			return stats, fileErrs, err
		}

		end := start + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		batch := jobs[start:end]

		processed, perr := ix.parseAndChunkBatch(ctx, batch)
		for _, e := range perr {
			fileErrs = append(fileErrs, e)
			stats.SkippedFiles++
		}

		if len(processed) == 0 {
			continue
		}

		if err := ix.embedAndWriteBatch(ctx, processed); err != nil {
			return stats, fileErrs, fmt.Errorf("indexer: write batch: %w", err)
		}

		if err := ix.lex.Commit(); err != nil {
			return stats, fileErrs, fmt.Errorf("indexer: commit batch: %w", err)
		}

		for _, p := range processed {
			stats.IndexedFiles++
			stats.TotalChunks += len(p.chunks)
		}
	}

	return stats, fileErrs, nil
}

// collectAndGate walks dir (same discovery rules as the Merkle builder) and
// applies the per-file security/size/change gate, returning jobs for files
// that need (re)indexing, a count of files whose cached hash still matches,
// and the errors for files that were rejected outright.
func (ix *Indexer) collectAndGate(dir string) ([]fileJob, int, []FileError, error) {
	var jobs []fileJob
	var unchanged int
	var fileErrs []FileError

	err := merkle.WalkSourceFiles(dir, func(path string) error {
		if isSensitivePath(path) {
			fileErrs = append(fileErrs, FileError{Path: path, Category: CategoryPermanent, Message: "sensitive file"})
			return nil
		}

		info, statErr := os.Stat(path)
		if statErr != nil {
			fileErrs = append(fileErrs, FileError{Path: path, Category: CategoryTransient, Message: statErr.Error()})
			return nil
		}
		if ix.cfg.MaxFileSizeBytes > 0 && info.Size() > ix.cfg.MaxFileSizeBytes {
			fileErrs = append(fileErrs, FileError{Path: path, Category: CategoryPermanent, Message: "exceeds max file size"})
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			fileErrs = append(fileErrs, FileError{Path: path, Category: CategoryTransient, Message: readErr.Error()})
			return nil
		}

		if containsSecret(content) {
			fileErrs = append(fileErrs, FileError{Path: path, Category: CategoryPermanent, Message: "secret content detected"})
			return nil
		}

		changed, cacheErr := ix.cache.HasChanged(path, hashHex(content))
		if cacheErr != nil {
			fileErrs = append(fileErrs, FileError{Path: path, Category: CategoryTransient, Message: cacheErr.Error()})
			return nil
		}
		if !changed {
			unchanged++
			return nil
		}

		jobs = append(jobs, fileJob{path: path, content: content})
		return nil
	})
	return jobs, unchanged, fileErrs, err
}

// parseAndChunkBatch parses and chunks a batch of files in parallel, up to
// ParseConcurrency in flight. Each task constructs its own parser; parser
// instances hold mutable state and cannot be shared across goroutines.
func (ix *Indexer) parseAndChunkBatch(ctx context.Context, jobs []fileJob) ([]processedFile, []FileError) {
	results := make([]processedFile, len(jobs))
	errs := make([]FileError, len(jobs))
	hasErr := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.parseConcurrency())

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			p := parser.New()
			result, err := p.ParseSource(gctx, job.content)
			if err != nil {
				errs[i] = FileError{Path: job.path, Category: CategoryPermanent, Message: err.Error()}
				hasErr[i] = true
				return nil
			}

			c := chunker.New(ix.cfg.Chunker)
			chunks, err := c.ChunkFile(job.path, job.content, result)
			if err != nil {
				errs[i] = FileError{Path: job.path, Category: CategoryPermanent, Message: err.Error()}
				hasErr[i] = true
				return nil
			}

			results[i] = processedFile{path: job.path, content: job.content, chunks: chunks}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]processedFile, 0, len(jobs))
	var fileErrs []FileError
	for i := range jobs {
		if hasErr[i] {
			fileErrs = append(fileErrs, errs[i])
			continue
		}
		out = append(out, results[i])
	}
	return out, fileErrs
}

// embedAndWriteBatch embeds every chunk from the batch in one pooled
// sequential pass, then writes to the lexical and vector stores with a
// single call each, and updates the metadata cache for every file written.
// Never issues per-file store calls.
func (ix *Indexer) embedAndWriteBatch(ctx context.Context, processed []processedFile) error {
	var allChunks []chunker.CodeChunk
	for _, p := range processed {
		allChunks = append(allChunks, p.chunks...)
	}
	if len(allChunks) == 0 {
		return ix.updateCache(processed)
	}

	texts := make([]string, len(allChunks))
	for i, c := range allChunks {
		texts[i] = c.FormatForEmbedding()
	}

	vecs, err := embedder.EmbedBatched(ctx, ix.embedder, texts, embedder.ModePassage, embedder.BatchOptions{
		BatchSize: ix.cfg.EmbedBatchSize,
	})
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	if err := ix.lex.IndexChunks(ctx, allChunks); err != nil {
		return fmt.Errorf("lexical index: %w", err)
	}

	ids := make([]string, len(allChunks))
	for i, c := range allChunks {
		ids[i] = c.ID
	}
	if err := ix.vec.UpsertBatch(ctx, ids, vecs, allChunks); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	return ix.updateCache(processed)
}

func (ix *Indexer) updateCache(processed []processedFile) error {
	entries := make(map[string]metacache.Entry, len(processed))
	now := time.Now()
	for _, p := range processed {
		info, err := os.Stat(p.path)
		if err != nil {
			continue // file vanished between read and cache update; next run re-detects it
		}
		entries[p.path] = metacache.Entry{
			ContentHash:  hashHex(p.content),
			LastModified: info.ModTime(),
			SizeBytes:    info.Size(),
			IndexedAt:    now,
		}
	}
	return ix.cache.SetBatch(entries)
}

// IndexFile (re)indexes a single file by path: parse, chunk, embed, write,
// cache-update. Used by the incremental driver's per-file add/modify path.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (indexed bool, chunkCount int, ferr *FileError, err error) {
	if isSensitivePath(path) {
		return false, 0, &FileError{Path: path, Category: CategoryPermanent, Message: "sensitive file"}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		return false, 0, &FileError{Path: path, Category: CategoryTransient, Message: statErr.Error()}, nil
	}
	if ix.cfg.MaxFileSizeBytes > 0 && info.Size() > ix.cfg.MaxFileSizeBytes {
		return false, 0, &FileError{Path: path, Category: CategoryPermanent, Message: "exceeds max file size"}, nil
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return false, 0, &FileError{Path: path, Category: CategoryTransient, Message: readErr.Error()}, nil
	}
	if containsSecret(content) {
		return false, 0, &FileError{Path: path, Category: CategoryPermanent, Message: "secret content detected"}, nil
	}

	processed, ferrs := ix.parseAndChunkBatch(ctx, []fileJob{{path: path, content: content}})
	if len(ferrs) > 0 {
		return false, 0, &ferrs[0], nil
	}
	if len(processed) == 0 {
		return false, 0, nil, nil
	}

	if err := ix.embedAndWriteBatch(ctx, processed); err != nil {
		return false, 0, nil, err
	}
	return true, len(processed[0].chunks), nil, nil
}

// DeleteFile removes every chunk for path from both stores and drops the
// path's cache entry.
func (ix *Indexer) DeleteFile(ctx context.Context, path string) error {
	if err := ix.lex.DeleteByFilePath(path); err != nil {
		return fmt.Errorf("indexer: lexical delete %s: %w", path, err)
	}
	if err := ix.vec.DeleteByFilePath(ctx, path); err != nil {
		return fmt.Errorf("indexer: vector delete %s: %w", path, err)
	}
	if err := ix.cache.Remove(path); err != nil {
		return fmt.Errorf("indexer: cache remove %s: %w", path, err)
	}
	return nil
}

// Commit commits the lexical index.
func (ix *Indexer) Commit() error {
	return ix.lex.Commit()
}

// ClearAllData drops the metadata cache, deletes all lexical documents and
// commits, and clears the vector store.
func (ix *Indexer) ClearAllData(ctx context.Context) error {
	if err := ix.cache.Clear(); err != nil {
		return fmt.Errorf("indexer: clear cache: %w", err)
	}
	if err := ix.lex.DeleteAll(); err != nil {
		return fmt.Errorf("indexer: clear lexical: %w", err)
	}
	if err := ix.lex.Commit(); err != nil {
		return fmt.Errorf("indexer: commit after clear: %w", err)
	}
	if err := ix.vec.Clear(ctx); err != nil {
		return fmt.Errorf("indexer: clear vector: %w", err)
	}
	return nil
}

// memoryGuard sleeps briefly if heap usage exceeds the high-water mark,
// giving the runtime a chance to reclaim memory between batches.
func (ix *Indexer) memoryGuard(ctx context.Context) error {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	if stats.Sys == 0 {
		return nil
	}
	usedPct := float64(stats.HeapAlloc) / float64(stats.Sys) * 100
	if usedPct < 85 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func hashHex(content []byte) string {
	return hasher.HashHex(content)
}
