package embedder

import (
	"context"
	"fmt"
)

// BatchProgress reports embedding progress for real-time feedback during a
// large indexing run.
type BatchProgress struct {
	BatchIndex      int
	TotalBatches    int
	ProcessedChunks int
	TotalChunks     int
}

// BatchOptions configures EmbedBatched.
type BatchOptions struct {
	// BatchSize is the number of texts embedded per call to the provider;
	// typical range is 96-256. Defaults to 128 if <= 0.
	BatchSize int
	// WarmUp, if true, issues one throwaway embed call with the first
	// batch's texts before processing begins, absorbing any first-call
	// latency the underlying model has.
	WarmUp bool
	// Progress receives one update per completed batch; may be nil.
	Progress chan<- BatchProgress
}

// EmbedBatched embeds texts in batches of opts.BatchSize, preserving input
// order, and reports progress as each batch completes. Per the contract
// that batching is a correctness-adjacent performance property, callers
// collecting chunks across many files should gather them all and call this
// once per batch run, never once per file.
func EmbedBatched(ctx context.Context, provider Provider, texts []string, mode Mode, opts BatchOptions) ([][]float32, error) {
	total := len(texts)
	if total == 0 {
		return [][]float32{}, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 128
	}

	if opts.WarmUp {
		end := batchSize
		if end > total {
			end = total
		}
		if _, err := provider.Embed(ctx, texts[:end], mode); err != nil {
			return nil, fmt.Errorf("warm-up batch failed: %w", err)
		}
	}

	numBatches := (total + batchSize - 1) / batchSize
	results := make([][]float32, total)

	processed := 0
	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := batchIdx * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}

		batchEmbeddings, err := provider.Embed(ctx, texts[start:end], mode)
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", batchIdx+1, numBatches, err)
		}
		for i, emb := range batchEmbeddings {
			results[start+i] = emb
		}

		processed += end - start
		if opts.Progress != nil {
			opts.Progress <- BatchProgress{
				BatchIndex:      batchIdx + 1,
				TotalBatches:    numBatches,
				ProcessedChunks: processed,
				TotalChunks:     total,
			}
		}
	}

	return results, nil
}
