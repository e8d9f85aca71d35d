// Package vector wraps an embedded dense vector store over the code chunk
// schema: one document per chunk id, with a fixed-dimension embedding,
// cosine-metric k-NN, and the chunk's JSON for retrieval.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/localcode/codescope/internal/chunker"
)

// SearchResult is one k-NN hit: chunk id, similarity score in [0, 1], and
// the decoded chunk.
type SearchResult struct {
	ChunkID string
	Score   float32
	Chunk   chunker.CodeChunk
}

const collectionName = "code_chunks"

// Store is a cosine-metric k-NN vector store over code chunks, keyed by
// chunk id. The chromem-go collection reference is swapped under a RWMutex
// so that reload-style replacement never races with an in-flight query.
type Store struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
}

// Open creates an embedded vector store at dir with the given embedding
// dimension. An empty dir creates an in-memory (non-persistent) store.
func Open(dir string, dimensions int) (*Store, error) {
	var db *chromem.DB
	var err error
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("vector: open persistent db at %s: %w", dir, err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: create collection: %w", err)
	}

	return &Store{db: db, collection: collection, dimensions: dimensions}, nil
}

func chunkMetadata(c chunker.CodeChunk) (map[string]string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("vector: marshal chunk %s: %w", c.ID, err)
	}
	return map[string]string{
		"chunk_json": string(raw),
		"file_path":  c.Context.FilePath,
	}, nil
}

// Upsert atomically updates the document for chunk id if it exists, or
// inserts it otherwise. chromem-go's AddDocument already has update-if-
// exists semantics, so a single call satisfies the contract.
func (s *Store) Upsert(ctx context.Context, id string, embedding []float32, chunk chunker.CodeChunk) error {
	return s.UpsertBatch(ctx, []string{id}, [][]float32{embedding}, []chunker.CodeChunk{chunk})
}

// UpsertBatch upserts many chunk+embedding pairs as a single store
// operation rather than N single calls.
func (s *Store) UpsertBatch(ctx context.Context, ids []string, embeddings [][]float32, chunks []chunker.CodeChunk) error {
	if len(ids) != len(embeddings) || len(ids) != len(chunks) {
		return fmt.Errorf("vector: mismatched batch lengths (ids=%d embeddings=%d chunks=%d)", len(ids), len(embeddings), len(chunks))
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	docs := make([]chromem.Document, 0, len(ids))
	for i, id := range ids {
		meta, err := chunkMetadata(chunks[i])
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   chunks[i].Content,
			Embedding: embeddings[i],
			Metadata:  meta,
		})
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("vector: upsert batch: %w", err)
	}
	return nil
}

// Search runs cosine-metric k-NN against queryVector and returns the top k
// results with cosine distance mapped to a similarity score in [0, 1] via
// score = 1 - distance/2. chromem-go reports cosine similarity directly, so
// distance is recovered as 1 - similarity first.
func (s *Store) Search(ctx context.Context, queryVector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 15
	}

	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	if collection == nil {
		return nil, fmt.Errorf("vector: collection not initialized")
	}

	n := k
	if count := collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	docs, err := collection.QueryEmbedding(ctx, queryVector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}

	out := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		distance := 1 - doc.Similarity
		score := 1 - distance/2

		var c chunker.CodeChunk
		if raw, ok := doc.Metadata["chunk_json"]; ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return nil, fmt.Errorf("vector: decode chunk %s: %w", doc.ID, err)
			}
		}

		out = append(out, SearchResult{ChunkID: doc.ID, Score: score, Chunk: c})
	}
	return out, nil
}

// DeleteChunks removes documents by chunk id.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	for _, id := range ids {
		if err := collection.Delete(ctx, nil, nil, id); err != nil {
			return fmt.Errorf("vector: delete %s: %w", id, err)
		}
	}
	return nil
}

// DeleteByFilePath deletes every document whose file_path metadata equals path.
func (s *Store) DeleteByFilePath(ctx context.Context, path string) error {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	return collection.Delete(ctx, map[string]string{"file_path": path}, nil)
}

// Count returns the number of documents currently in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

// Clear removes every document by recreating the collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("vector: delete collection: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("vector: recreate collection: %w", err)
	}
	s.collection = collection
	return nil
}

// HealthCheck reports whether the store is reachable by attempting Count.
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return fmt.Errorf("vector: collection not initialized")
	}
	return nil
}

// Dimensions returns the configured embedding dimension for this store.
func (s *Store) Dimensions() int {
	return s.dimensions
}
