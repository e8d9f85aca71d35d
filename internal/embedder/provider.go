// Package embedder adapts code chunk text into fixed-dimension embedding
// vectors. The embedding model itself is an external collaborator; this
// package only defines the batched contract and a deterministic stand-in
// implementation used when no real model is configured.
package embedder

import "context"

// Mode specifies what an embedding is optimized for.
type Mode string

const (
	// ModeQuery embeds a user's search query.
	ModeQuery Mode = "query"
	// ModePassage embeds a code chunk to be indexed.
	ModePassage Mode = "passage"
)

// Provider converts text into fixed-dimension embedding vectors.
type Provider interface {
	// Embed converts texts into vectors; output length equals input length
	// and every vector has Dimensions() entries.
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)

	// EmbedOne is the single-text convenience form of Embed.
	EmbedOne(ctx context.Context, text string, mode Mode) ([]float32, error)

	// Dimensions returns the vector length this provider produces.
	Dimensions() int

	// Close releases any resources held by the provider.
	Close() error
}

// embedOne is the shared EmbedOne implementation used by providers that
// only need to implement Embed.
func embedOne(ctx context.Context, p Provider, text string, mode Mode) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text}, mode)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}
