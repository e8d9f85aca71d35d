// Package quality measures hybrid search ranking quality against a labeled
// test set and sweeps the RRF k parameter to find the value that maximizes
// NDCG@10. A result counts as relevant when its symbol name contains one
// of the query's relevant names.
package quality

import (
	"math"
	"strings"

	"github.com/localcode/codescope/internal/search"
)

// TestQuery is one labeled query: free text plus the symbol names that
// count as relevant hits.
type TestQuery struct {
	Query           string
	RelevantSymbols []string
}

func isRelevant(symbolName string, relevant []string) bool {
	for _, r := range relevant {
		if strings.Contains(symbolName, r) {
			return true
		}
	}
	return false
}

// NDCG computes Normalized Discounted Cumulative Gain at k: binary
// relevance (symbol name membership), log2(i+2) discount on 0-based
// position i, normalized against the ideal ordering.
func NDCG(results []search.Result, relevant []string, k int) float64 {
	if k > len(results) {
		k = len(results)
	}

	var dcg float64
	for i := 0; i < k; i++ {
		if isRelevant(results[i].Chunk.Context.SymbolName, relevant) {
			dcg += 1.0 / math.Log2(float64(i+2))
		}
	}

	idealCount := k
	if len(relevant) < idealCount {
		idealCount = len(relevant)
	}
	var idealDCG float64
	for i := 0; i < idealCount; i++ {
		idealDCG += 1.0 / math.Log2(float64(i+2))
	}

	if idealDCG == 0 {
		return 0
	}
	return dcg / idealDCG
}

// MRR computes Mean Reciprocal Rank: 1/(1+position) of the first relevant
// hit, 0 if none appear.
func MRR(results []search.Result, relevant []string) float64 {
	for i, r := range results {
		if isRelevant(r.Chunk.Context.SymbolName, relevant) {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// MAP computes Mean Average Precision across all relevant hits in results.
func MAP(results []search.Result, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}

	var found int
	var sumPrecision float64
	for i, r := range results {
		if isRelevant(r.Chunk.Context.SymbolName, relevant) {
			found++
			sumPrecision += float64(found) / float64(i+1)
		}
	}
	return sumPrecision / float64(len(relevant))
}

// RecallAtK computes the fraction of all relevant items found within the
// top k results.
func RecallAtK(results []search.Result, relevant []string, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if k > len(results) {
		k = len(results)
	}

	var found int
	for i := 0; i < k; i++ {
		if isRelevant(results[i].Chunk.Context.SymbolName, relevant) {
			found++
		}
	}
	return float64(found) / float64(len(relevant))
}

// PrecisionAtK computes the fraction of the top k results that are
// relevant.
func PrecisionAtK(results []search.Result, relevant []string, k int) float64 {
	denom := k
	if denom > len(results) {
		denom = len(results)
	}
	if denom == 0 {
		return 0
	}

	var found int
	for i := 0; i < denom; i++ {
		if isRelevant(results[i].Chunk.Context.SymbolName, relevant) {
			found++
		}
	}
	return float64(found) / float64(denom)
}

// EvaluationMetrics is the comprehensive score set for one run against a
// test set.
type EvaluationMetrics struct {
	NDCGAt10      float64
	MRR           float64
	MAP           float64
	RecallAt20    float64
	PrecisionAt10 float64
}

// Evaluate runs every test query through searchFn and averages each metric
// across the set.
func Evaluate(queries []TestQuery, searchFn func(query string, limit int) ([]search.Result, error)) (EvaluationMetrics, error) {
	var sum EvaluationMetrics
	for _, tq := range queries {
		results, err := searchFn(tq.Query, 20)
		if err != nil {
			return EvaluationMetrics{}, err
		}
		sum.NDCGAt10 += NDCG(results, tq.RelevantSymbols, 10)
		sum.MRR += MRR(results, tq.RelevantSymbols)
		sum.MAP += MAP(results, tq.RelevantSymbols)
		sum.RecallAt20 += RecallAtK(results, tq.RelevantSymbols, 20)
		sum.PrecisionAt10 += PrecisionAtK(results, tq.RelevantSymbols, 10)
	}

	n := float64(len(queries))
	if n == 0 {
		return EvaluationMetrics{}, nil
	}
	return EvaluationMetrics{
		NDCGAt10:      sum.NDCGAt10 / n,
		MRR:           sum.MRR / n,
		MAP:           sum.MAP / n,
		RecallAt20:    sum.RecallAt20 / n,
		PrecisionAt10: sum.PrecisionAt10 / n,
	}, nil
}
