// Package merkle builds a content-addressed snapshot of a source tree and
// answers "did anything change since last run?" in O(1), enumerating the
// exact add/modify/delete set in O(n) when it did.
//
// Leaves are file content hashes in sorted-path order, the root hash is a
// SHA-256 fold over that sequence, and a snapshot is the serializable
// {root hash, path -> FileNode, version, timestamp} tuple.
package merkle

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/localcode/codescope/internal/hasher"
)

// SchemaVersion is bumped whenever the on-disk snapshot format changes.
// A snapshot written by an unknown version is treated as absent.
const SchemaVersion uint32 = 1

// defaultExtensions is the language extension filter applied by Build.
var defaultExtensions = map[string]bool{
	".rs": true,
}

// noiseDirs are directories skipped during traversal regardless of depth.
var noiseDirs = map[string]bool{
	".git":         true,
	"target":       true,
	"node_modules": true,
	"vendor":       true,
}

// FileNode is a single leaf: content hash, stable ordering position, and
// last-modified time.
type FileNode struct {
	ContentHash  [hasher.Size]byte
	LeafIndex    int
	LastModified time.Time
}

// Tree is an ordered sequence of FileNode keyed by absolute path. Leaf order
// is always lexicographic path order.
type Tree struct {
	RootDir   string
	Nodes     map[string]FileNode
	root      [hasher.Size]byte
	hasLeaves bool
}

// RootHash returns the Merkle root, and false if the tree has zero leaves.
func (t *Tree) RootHash() ([hasher.Size]byte, bool) {
	return t.root, t.hasLeaves
}

// FileCount returns the number of files tracked by the tree.
func (t *Tree) FileCount() int {
	return len(t.Nodes)
}

// WalkSourceFiles enumerates files under rootDir with the same extension
// and noise-directory filtering Build uses, calling fn once per surviving
// path in lexicographic order. Per-entry walk errors are swallowed (callers
// that need to surface them as warnings should stat/read the path
// themselves); this mirrors Build's own tolerance of inaccessible entries.
// Shared by internal/indexer's file-collection step so the indexer's
// discovery rules never drift from the Merkle builder's.
func WalkSourceFiles(rootDir string, fn func(path string) error) error {
	var paths []string
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != rootDir && noiseDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !defaultExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("merkle: walk %s: %w", rootDir, err)
	}

	sort.Strings(paths)
	for _, p := range paths {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Build recursively enumerates files under rootDir, filters by extension and
// noise directories, sorts by path, hashes each file, and computes the root
// hash over the sorted leaf sequence. An empty directory yields zero leaves
// and an absent root hash.
func Build(rootDir string) (*Tree, error) {
	var paths []string
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // surfaced as a warning by callers, not fatal to the walk
		}
		if info.IsDir() {
			if path != rootDir && noiseDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !defaultExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merkle: walk %s: %w", rootDir, err)
	}

	sort.Strings(paths)

	tree := &Tree{RootDir: rootDir, Nodes: make(map[string]FileNode, len(paths))}
	leafHashes := make([][hasher.Size]byte, 0, len(paths))

	for idx, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("merkle: read %s: %w", path, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("merkle: stat %s: %w", path, err)
		}

		h := hasher.Hash(content)
		leafHashes = append(leafHashes, h)
		tree.Nodes[path] = FileNode{
			ContentHash:  h,
			LeafIndex:    idx,
			LastModified: info.ModTime(),
		}
	}

	if len(leafHashes) > 0 {
		tree.root = foldRoot(leafHashes)
		tree.hasLeaves = true
	}

	return tree, nil
}

// foldRoot computes a deterministic root hash over an ordered leaf sequence
// by hashing the concatenation of all leaf digests.
func foldRoot(leaves [][hasher.Size]byte) [hasher.Size]byte {
	h := sha256.New()
	for _, leaf := range leaves {
		h.Write(leaf[:])
	}
	var out [hasher.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HasChanges is an O(1) comparison of root hashes.
func (t *Tree) HasChanges(other *Tree) bool {
	tRoot, tOk := t.RootHash()
	oRoot, oOk := other.RootHash()
	if tOk != oOk {
		return true
	}
	if !tOk {
		return false // both empty
	}
	return tRoot != oRoot
}

// ChangeSet holds three disjoint, path-sorted lists.
type ChangeSet struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// IsEmpty reports whether the change set has no entries.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// Diff computes the change set between prior (older) and t (newer), i.e.
// t.Diff(prior). Added = paths in t not in prior; Deleted = paths in prior
// not in t; Modified = paths in both with differing content hash. Lists are
// returned in stable path order.
func (t *Tree) Diff(prior *Tree) ChangeSet {
	var cs ChangeSet

	for path, node := range t.Nodes {
		if priorNode, ok := prior.Nodes[path]; ok {
			if priorNode.ContentHash != node.ContentHash {
				cs.Modified = append(cs.Modified, path)
			}
		} else {
			cs.Added = append(cs.Added, path)
		}
	}
	for path := range prior.Nodes {
		if _, ok := t.Nodes[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	sort.Strings(cs.Added)
	sort.Strings(cs.Modified)
	sort.Strings(cs.Deleted)
	return cs
}
