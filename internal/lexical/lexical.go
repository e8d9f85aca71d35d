// Package lexical wraps a BM25 full-text engine over the code chunk
// schema: one document per chunk, keyed by chunk id, with content,
// symbol_name, and docstring text-analyzed and the remaining fields stored
// as exact strings.
package lexical

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/localcode/codescope/internal/chunker"
)

const batchSize = 1000

// Result is one hit from a lexical search: the chunk id, its BM25 score,
// and the decoded chunk for immediate use by the caller.
type Result struct {
	ChunkID string
	Score   float64
	Chunk   chunker.CodeChunk
}

// Index is a single-writer BM25 index over code chunks.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// Open creates an in-memory bleve index using the chunk schema mapping.
// The lexical engine files live under the caller-supplied directory in the
// persisted deployment; callers that need an on-disk index should use
// OpenAt instead.
func Open() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("lexical: create in-memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenAt creates or opens a bleve index rooted at dir.
func OpenAt(dir string) (*Index, error) {
	idx, err := bleve.Open(dir)
	if err == nil {
		return &Index{index: idx}, nil
	}
	idx, err = bleve.New(dir, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("lexical: create index at %s: %w", dir, err)
	}
	return &Index{index: idx}, nil
}

// buildMapping defines the chunk schema: content/symbol_name/docstring are
// text-analyzed, symbol_kind/file_path/module_path/chunk_id are exact
// strings, chunk_json is stored-only.
func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	text.Index = true
	text.IncludeTermVectors = true

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = "keyword"
	exact.Store = true
	exact.Index = true

	blob := bleve.NewTextFieldMapping()
	blob.Store = true
	blob.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("chunk_id", exact)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("symbol_name", text)
	doc.AddFieldMappingsAt("symbol_kind", exact)
	doc.AddFieldMappingsAt("file_path", exact)
	doc.AddFieldMappingsAt("module_path", exact)
	doc.AddFieldMappingsAt("docstring", text)
	doc.AddFieldMappingsAt("chunk_json", blob)

	im.DefaultMapping = doc
	return im
}

func chunkDocument(c chunker.CodeChunk) (map[string]interface{}, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("lexical: marshal chunk %s: %w", c.ID, err)
	}
	return map[string]interface{}{
		"chunk_id":    c.ID,
		"content":     c.Content,
		"symbol_name": c.Context.SymbolName,
		"symbol_kind": c.Context.SymbolKind,
		"file_path":   c.Context.FilePath,
		"module_path": joinModulePath(c.Context.ModulePath),
		"docstring":   c.Context.Docstring,
		"chunk_json":  string(raw),
	}, nil
}

func joinModulePath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "::"
		}
		out += p
	}
	return out
}

// IndexChunks adds or replaces documents for chunks, keyed by chunk id, in
// batches of 1000.
func (ix *Index) IndexChunks(ctx context.Context, chunks []chunker.CodeChunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()
	for i, c := range chunks {
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		doc, err := chunkDocument(c)
		if err != nil {
			return err
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("lexical: batch index chunk %s: %w", c.ID, err)
		}

		if batch.Size() >= batchSize {
			if err := ix.index.Batch(batch); err != nil {
				return fmt.Errorf("lexical: execute batch: %w", err)
			}
			batch = ix.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("lexical: execute final batch: %w", err)
		}
	}
	return nil
}

// DeleteByFilePath deletes every document whose file_path equals path.
func (ix *Index) DeleteByFilePath(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	q := bleve.NewMatchQuery(path)
	q.SetField("file_path")
	req := bleve.NewSearchRequestOptions(q, 10000, 0, false)
	req.Fields = []string{"chunk_id"}

	result, err := ix.index.Search(req)
	if err != nil {
		return fmt.Errorf("lexical: find chunks for %s: %w", path, err)
	}

	batch := ix.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if batch.Size() > 0 {
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("lexical: delete batch for %s: %w", path, err)
		}
	}
	return nil
}

// DeleteAll removes every document from the index.
func (ix *Index) DeleteAll() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 10000, 0, false)
	req.Fields = []string{}
	for {
		result, err := ix.index.Search(req)
		if err != nil {
			return fmt.Errorf("lexical: list for clear: %w", err)
		}
		if len(result.Hits) == 0 {
			return nil
		}
		batch := ix.index.NewBatch()
		for _, hit := range result.Hits {
			batch.Delete(hit.ID)
		}
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("lexical: delete-all batch: %w", err)
		}
	}
}

// Commit is a no-op for bleve's auto-committing batches; it exists to
// satisfy the writer-lifecycle contract shared with other backends.
func (ix *Index) Commit() error {
	return nil
}

// Rollback is a no-op: bleve batches already committed cannot be undone.
// Exposed so Close can attempt it unconditionally per the writer-lock
// release contract.
func (ix *Index) Rollback() error {
	return nil
}

// Search runs query against {content, symbol_name, docstring} and returns
// the top k hits ordered by descending BM25 score.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 {
		k = 15
	}

	bq := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(bq, k, 0, false)
	req.Fields = []string{"chunk_id", "chunk_json"}

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical: search %q: %w", query, err)
	}

	out := make([]Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, _ := hit.Fields["chunk_id"].(string)
		raw, _ := hit.Fields["chunk_json"].(string)

		var c chunker.CodeChunk
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return nil, fmt.Errorf("lexical: decode chunk %s: %w", id, err)
			}
		}

		out = append(out, Result{ChunkID: id, Score: hit.Score, Chunk: c})
	}
	return out, nil
}

// Close releases the writer lock, attempting a rollback first.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_ = ix.Rollback()
	if ix.index != nil {
		return ix.index.Close()
	}
	return nil
}
