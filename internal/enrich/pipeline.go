package enrich

import (
	"context"
	"log"
	"sync"
)

// Pipeline applies a sequence of stages to items flowing through a channel.
// For each item, steps within a stage run in parallel and stages run
// sequentially, so later stages see the effects of earlier ones. Step errors
// are logged and do not stop the current item or the pipeline.
//
// The resolver feeds fetched snapshots through a Pipeline: a geocoding stage
// first, then a fan-out stage that persists and publishes the results.
type Pipeline[T any] struct {
	stages []Stage[T]
}

// NewPipeline constructs a Pipeline from the provided stages, applied to each
// item in order.
func NewPipeline[T any](stages ...Stage[T]) *Pipeline[T] {
	return &Pipeline[T]{stages: stages}
}

// Process consumes items from in until the channel closes or ctx is
// cancelled. For each item every stage runs to completion (a stage barrier)
// before the next stage starts.
func (p *Pipeline[T]) Process(ctx context.Context, in <-chan *T) {
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}
			p.processItem(ctx, item)
		}
	}
}

func (p *Pipeline[T]) processItem(ctx context.Context, item *T) {
	for _, stage := range p.stages {
		var wg sync.WaitGroup
		for _, step := range stage.steps {
			wg.Add(1)
			go func(step Step[T]) {
				defer wg.Done()
				if err := step(ctx, item); err != nil {
					log.Printf("enrichment step failed: %v", err)
				}
			}(step)
		}
		wg.Wait() // stage barrier
	}
}
