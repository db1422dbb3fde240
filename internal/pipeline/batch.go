package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchOptions tune batch execution.
type BatchOptions struct {
	// Workers bounds how many documents are processed concurrently.
	Workers int
	// DocumentTimeout bounds each document; zero means no per-document
	// deadline beyond the batch context.
	DocumentTimeout time.Duration
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Results   []DocumentResult
	Succeeded int
	Failed    int
}

// ProcessBatch runs documents through the pipeline with bounded concurrency.
// Results come back in input order. A failing or panicking document never
// takes the batch down with it.
func (p *Processor) ProcessBatch(ctx context.Context, docs []Document, opts BatchOptions) BatchResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]DocumentResult, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = p.processOne(ctx, doc, opts.DocumentTimeout)
			return nil
		})
	}
	// workers never return errors; Wait only fences completion
	_ = g.Wait()

	batch := BatchResult{Results: results}
	for _, r := range results {
		if r.Failed {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}
	p.logger.Info("pipeline.batch.done",
		"total", len(docs),
		"succeeded", batch.Succeeded,
		"failed", batch.Failed)
	return batch
}

func (p *Processor) processOne(ctx context.Context, doc Document, timeout time.Duration) (result DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline.document.panic",
				"object_id", doc.ObjectID,
				"panic", r)
			result = DocumentResult{
				Document: doc,
				Failed:   true,
				Err:      fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.ProcessDocument(ctx, doc)
}
