package vector

import (
	"context"
	"testing"

	"github.com/localcode/codescope/internal/chunker"
)

func testChunk(id, filePath, symbolName string) chunker.CodeChunk {
	return chunker.CodeChunk{
		ID:      id,
		Content: "fn " + symbolName + "() {}",
		Context: chunker.ChunkContext{
			FilePath:   filePath,
			ModulePath: []string{"crate", "lib"},
			SymbolName: symbolName,
			SymbolKind: "function",
		},
	}
}

func unitVector(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1
	return v
}

func TestUpsertAndSearch(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}

	chunk := testChunk("1", "src/lib.rs", "parse_document")
	if err := store.Upsert(context.Background(), "1", unitVector(4, 0), chunk); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(context.Background(), unitVector(4, 0), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "1" {
		t.Fatalf("expected chunk 1, got %+v", results)
	}
	if results[0].Score < 0.99 {
		t.Fatalf("expected near-identical vectors to score close to 1, got %v", results[0].Score)
	}
	if results[0].Chunk.Context.SymbolName != "parse_document" {
		t.Fatalf("expected decoded chunk, got %+v", results[0].Chunk)
	}
}

func TestUpsertBatchSingleCall(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}

	chunks := []chunker.CodeChunk{
		testChunk("a", "src/a.rs", "foo"),
		testChunk("b", "src/b.rs", "bar"),
	}
	embeddings := [][]float32{unitVector(4, 0), unitVector(4, 1)}
	if err := store.UpsertBatch(context.Background(), []string{"a", "b"}, embeddings, chunks); err != nil {
		t.Fatal(err)
	}
	if store.Count() != 2 {
		t.Fatalf("expected 2 documents, got %d", store.Count())
	}
}

func TestUpsertBatchMismatchedLengths(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}

	err = store.UpsertBatch(context.Background(), []string{"a"}, [][]float32{unitVector(4, 0), unitVector(4, 1)}, []chunker.CodeChunk{testChunk("a", "src/a.rs", "foo")})
	if err == nil {
		t.Fatal("expected error on mismatched batch lengths")
	}
}

func TestDeleteByFilePath(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}

	chunks := []chunker.CodeChunk{
		testChunk("a", "src/a.rs", "foo"),
		testChunk("b", "src/b.rs", "bar"),
	}
	embeddings := [][]float32{unitVector(4, 0), unitVector(4, 1)}
	if err := store.UpsertBatch(context.Background(), []string{"a", "b"}, embeddings, chunks); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteByFilePath(context.Background(), "src/a.rs"); err != nil {
		t.Fatal(err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 document remaining, got %d", store.Count())
	}

	results, err := store.Search(context.Background(), unitVector(4, 0), 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Chunk.Context.FilePath == "src/a.rs" {
			t.Fatalf("expected no results from deleted path, got %+v", r)
		}
	}
}

func TestDeleteChunks(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}

	chunk := testChunk("1", "src/lib.rs", "foo")
	if err := store.Upsert(context.Background(), "1", unitVector(4, 0), chunk); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteChunks(context.Background(), []string{"1"}); err != nil {
		t.Fatal(err)
	}
	if store.Count() != 0 {
		t.Fatalf("expected 0 documents after delete, got %d", store.Count())
	}
}

func TestClear(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}

	chunk := testChunk("1", "src/lib.rs", "foo")
	if err := store.Upsert(context.Background(), "1", unitVector(4, 0), chunk); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty store after Clear, got %d", store.Count())
	}
}

func TestHealthCheck(t *testing.T) {
	store, err := Open("", 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestDimensions(t *testing.T) {
	store, err := Open("", 384)
	if err != nil {
		t.Fatal(err)
	}
	if store.Dimensions() != 384 {
		t.Fatalf("expected configured dimension 384, got %d", store.Dimensions())
	}
}
