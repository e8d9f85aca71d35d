package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localcode/codescope/internal/chunker"
	"github.com/localcode/codescope/internal/embedder"
	"github.com/localcode/codescope/internal/lexical"
	"github.com/localcode/codescope/internal/vector"
)

func chunkWithContent(id, content, symbol string) chunker.CodeChunk {
	return chunker.CodeChunk{
		ID:      id,
		Content: content,
		Context: chunker.ChunkContext{
			FilePath:   "lib.rs",
			SymbolName: symbol,
			SymbolKind: "function",
		},
	}
}

func newTestSearcher(t *testing.T) (*Searcher, *lexical.Index, *vector.Store) {
	t.Helper()

	lex, err := lexical.Open()
	require.NoError(t, err)
	t.Cleanup(func() { lex.Close() })

	vec, err := vector.Open("", 384)
	require.NoError(t, err)

	emb := embedder.NewHashProvider(384)

	return New(DefaultConfig(), lex, vec, emb), lex, vec
}

func TestSearchFusesBothLegs(t *testing.T) {
	ctx := context.Background()
	s, lex, vec := newTestSearcher(t)

	a := chunkWithContent("chunk-a", "fn add(a: i32, b: i32) -> i32 { a + b }", "add")
	b := chunkWithContent("chunk-b", "fn subtract(a: i32, b: i32) -> i32 { a - b }", "subtract")

	require.NoError(t, lex.IndexChunks(ctx, []chunker.CodeChunk{a, b}))

	embA, err := embedder.NewHashProvider(384).EmbedOne(ctx, a.FormatForEmbedding(), embedder.ModePassage)
	require.NoError(t, err)
	embB, err := embedder.NewHashProvider(384).EmbedOne(ctx, b.FormatForEmbedding(), embedder.ModePassage)
	require.NoError(t, err)
	require.NoError(t, vec.UpsertBatch(ctx, []string{a.ID, b.ID}, [][]float32{embA, embB}, []chunker.CodeChunk{a, b}))

	results, err := s.Search(ctx, "add", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.False(t, s.FallbackActive())

	found := false
	for _, r := range results {
		if r.ChunkID == "chunk-a" {
			found = true
			require.NotNil(t, r.LexicalRank)
		}
	}
	require.True(t, found)
}

func TestSearchDegradesWhenVectorStoreEmpty(t *testing.T) {
	ctx := context.Background()
	s, lex, _ := newTestSearcher(t)

	a := chunkWithContent("chunk-a", "fn add(a: i32, b: i32) -> i32 { a + b }", "add")
	require.NoError(t, lex.IndexChunks(ctx, []chunker.CodeChunk{a}))

	results, err := s.Search(ctx, "add", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Nil(t, results[0].VectorScore)
}

func TestReciprocalRankFusionOrdersByCombinedScore(t *testing.T) {
	s := New(DefaultConfig(), nil, nil, nil)

	lexResults := []lexical.Result{
		{ChunkID: "only-lexical", Score: 5},
	}
	vecResults := []vector.SearchResult{
		{ChunkID: "only-vector", Score: 0.9},
		{ChunkID: "only-lexical", Score: 0.1},
	}

	merged := s.reciprocalRankFusion(lexResults, vecResults, DefaultConfig().RRFK)
	require.Len(t, merged, 2)
	require.Equal(t, "only-lexical", merged[0].ChunkID) // present in both legs outranks single-leg
}

func TestVectorOnlySearch(t *testing.T) {
	ctx := context.Background()
	s, _, vec := newTestSearcher(t)

	a := chunkWithContent("chunk-a", "fn add(a: i32, b: i32) -> i32 { a + b }", "add")
	emb := embedder.NewHashProvider(384)
	embA, err := emb.EmbedOne(ctx, a.FormatForEmbedding(), embedder.ModePassage)
	require.NoError(t, err)
	require.NoError(t, vec.UpsertBatch(ctx, []string{a.ID}, [][]float32{embA}, []chunker.CodeChunk{a}))

	results, err := s.VectorOnlySearch(ctx, "add", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Nil(t, results[0].LexicalScore)
	require.NotNil(t, results[0].VectorRank)
}
