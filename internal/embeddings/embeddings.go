package embeddings

import "context"

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// Func adapts a plain function to an Embedder.
type Func func(ctx context.Context, text string) (Vector, error)

func (f Func) Embed(ctx context.Context, text string) (Vector, error) {
	return f(ctx, text)
}
