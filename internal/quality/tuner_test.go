package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localcode/codescope/internal/chunker"
	"github.com/localcode/codescope/internal/embedder"
	"github.com/localcode/codescope/internal/lexical"
	"github.com/localcode/codescope/internal/search"
	"github.com/localcode/codescope/internal/vector"
)

func TestTuneKSweepsAllCandidates(t *testing.T) {
	ctx := context.Background()

	lex, err := lexical.Open()
	require.NoError(t, err)
	t.Cleanup(func() { lex.Close() })

	vec, err := vector.Open("", 384)
	require.NoError(t, err)

	emb := embedder.NewHashProvider(384)

	chunks := []chunker.CodeChunk{
		{ID: "c1", Content: "fn parse_args() {}", Context: chunker.ChunkContext{SymbolName: "parse_args"}},
		{ID: "c2", Content: "fn unrelated() {}", Context: chunker.ChunkContext{SymbolName: "unrelated"}},
	}
	require.NoError(t, lex.IndexChunks(ctx, chunks))

	embs := make([][]float32, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		v, err := emb.EmbedOne(ctx, c.FormatForEmbedding(), embedder.ModePassage)
		require.NoError(t, err)
		embs[i] = v
		ids[i] = c.ID
	}
	require.NoError(t, vec.UpsertBatch(ctx, ids, embs, chunks))

	searcher := search.New(search.DefaultConfig(), lex, vec, emb)

	queries := []TestQuery{
		{Query: "parse command line arguments", RelevantSymbols: []string{"parse_args"}},
	}

	result, err := TuneK(ctx, searcher, queries)
	require.NoError(t, err)
	require.Len(t, result.KValuesTested, len(kValues))
	require.Contains(t, kValues, result.BestK)
}

func TestTuneKRejectsEmptyQuerySet(t *testing.T) {
	_, err := TuneK(context.Background(), nil, nil)
	require.Error(t, err)
}
