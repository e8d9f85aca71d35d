package quality

import (
	"context"
	"fmt"
	"log"

	"github.com/localcode/codescope/internal/search"
)

// kValues are the RRF k candidates swept by TuneK.
var kValues = []float64{10, 20, 40, 60, 80, 100}

// TuningResult reports the best-performing k and every candidate's score.
type TuningResult struct {
	BestK         float64
	BestNDCG      float64
	KValuesTested []KScore
}

// KScore pairs one tested k with its average NDCG@10.
type KScore struct {
	K    float64
	NDCG float64
}

// TuneK sweeps kValues against searcher using queries, reporting the k that
// maximizes NDCG@10.
func TuneK(ctx context.Context, searcher *search.Searcher, queries []TestQuery) (TuningResult, error) {
	if len(queries) == 0 {
		return TuningResult{}, fmt.Errorf("quality: no test queries supplied")
	}

	result := TuningResult{BestK: 60, KValuesTested: make([]KScore, 0, len(kValues))}

	for _, k := range kValues {
		var total float64
		for _, tq := range queries {
			results, err := searcher.SearchWithK(ctx, tq.Query, 20, k)
			if err != nil {
				return TuningResult{}, fmt.Errorf("quality: search %q at k=%.0f: %w", tq.Query, k, err)
			}
			total += NDCG(results, tq.RelevantSymbols, 10)
		}

		avg := total / float64(len(queries))
		result.KValuesTested = append(result.KValuesTested, KScore{K: k, NDCG: avg})
		log.Printf("quality: k=%.1f NDCG@10=%.4f", k, avg)

		if avg > result.BestNDCG {
			result.BestNDCG = avg
			result.BestK = k
		}
	}

	log.Printf("quality: optimal k=%.1f NDCG@10=%.4f", result.BestK, result.BestNDCG)
	return result, nil
}

// DefaultRustQueries returns a small labeled set covering common Rust code
// search intents, suitable for tuning a general-purpose Rust code index.
func DefaultRustQueries() []TestQuery {
	return []TestQuery{
		{Query: "parse command line arguments", RelevantSymbols: []string{"clap_parser", "parse_args", "Args"}},
		{Query: "async http request", RelevantSymbols: []string{"reqwest", "http_client", "async_request"}},
		{Query: "error handling with Result", RelevantSymbols: []string{"Result", "error_handling", "Error"}},
		{Query: "serialize json data", RelevantSymbols: []string{"serde_json", "to_json", "Serialize"}},
		{Query: "read file from filesystem", RelevantSymbols: []string{"read_to_string", "fs::read", "File::open"}},
		{Query: "vector search with embeddings", RelevantSymbols: []string{"VectorStore", "search", "embeddings"}},
		{Query: "parse rust source code with tree-sitter", RelevantSymbols: []string{"RustParser", "parse_source", "tree_sitter"}},
		{Query: "create index for search", RelevantSymbols: []string{"index_directory", "UnifiedIndexer", "create_index"}},
	}
}
