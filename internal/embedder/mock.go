package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// HashProvider is a deterministic stand-in for a real embedding model: it
// derives a vector from the SHA-256 hash of the input text, so the same
// text always embeds to the same vector. Used in tests and wherever no real
// model is configured.
type HashProvider struct {
	mu         sync.Mutex
	dimensions int
	closed     bool
	closeErr   error
	embedErr   error
}

// NewHashProvider creates a deterministic embedding provider with the given
// vector dimension (default 384 if dimensions <= 0).
func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashProvider{dimensions: dimensions}
}

// SetCloseError configures the provider to return err from Close.
func (p *HashProvider) SetCloseError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// SetEmbedError configures the provider to return err from Embed.
func (p *HashProvider) SetEmbedError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedErr = err
}

// Embed derives one vector per text from its SHA-256 hash, tiling hash
// bytes across the configured dimension and normalizing into [-1, 1].
func (p *HashProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.embedErr != nil {
		return nil, p.embedErr
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		hash := sha256.Sum256([]byte(string(mode) + ":" + text))

		vec := make([]float32, p.dimensions)
		for j := 0; j < p.dimensions; j++ {
			offset := (j * 4) % len(hash)
			val := binary.BigEndian.Uint32(hash[offset : offset+4])
			vec[j] = (float32(val)/float32(1<<32))*2.0 - 1.0
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// EmbedOne embeds a single text.
func (p *HashProvider) EmbedOne(ctx context.Context, text string, mode Mode) ([]float32, error) {
	return embedOne(ctx, p, text, mode)
}

// Dimensions returns the configured vector length.
func (p *HashProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimensions
}

// Close marks the provider closed and returns any configured error.
func (p *HashProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

// IsClosed reports whether Close has been called.
func (p *HashProvider) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
