// Package enrich provides a small, generic pipeline abstraction: independent
// enrichment steps run in parallel within a stage, and stages execute
// sequentially per item.
package enrich

import (
	"context"
)

// Step is a single enrichment operation mutating the item in place. Steps in
// the same stage run concurrently against the same item and must not write
// the same fields. A failing step returns an error; the pipeline logs it and
// continues.
type Step[T any] func(ctx context.Context, item *T) error

// Stage groups steps that are safe to execute in parallel for one item. The
// pipeline waits for all of them before starting the next stage.
type Stage[T any] struct {
	steps []Step[T]
}

// NewStage constructs a Stage from the provided steps.
func NewStage[T any](steps ...Step[T]) Stage[T] {
	return Stage[T]{steps: steps}
}
