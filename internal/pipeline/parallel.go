package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/pyragen/internal/registry"
	"github.com/zjrosen/pyragen/internal/variant"
)

// genResult carries one finished generation back to the writer.
type genResult struct {
	index int
	v     variant.Variant
	err   error
}

// runParallel runs generator invocations through a bounded worker pool
// while this goroutine stays the registry stream's single writer.
// Results are re-sequenced to enumeration order before append, so the
// registry is always a clean prefix of the enumeration regardless of
// completion order.
func (r *Registrar) runParallel(ctx context.Context, writer *registry.Writer, summary *Summary) error {
	variants := variant.Collect(r.opts.WarpCounts, r.opts.TileDims)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	results := make(chan genResult)

	// Launcher: one task per variant, in enumeration order, bounded by
	// the pool limit. Closes results once every task has reported.
	go func() {
		for i, v := range variants {
			g.Go(func() error {
				err := r.generateOne(gctx, v, i)
				results <- genResult{index: i, v: v, err: err}
				if err != nil && !r.opts.FireAndForget {
					// Cancels the group; in-flight generations abort.
					return err
				}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	pending := make(map[int]genResult)
	next := 0
	var abortErr error

	for res := range results {
		pending[res.index] = res

		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)

			if abortErr == nil && ctx.Err() != nil {
				abortErr = fmt.Errorf("run cancelled after %d of %d variants: %w",
					next, r.total, ctx.Err())
			}

			if cur.err != nil {
				summary.Failed++
				if abortErr == nil && !r.opts.FireAndForget {
					abortErr = fmt.Errorf("aborting after variant %d of %d: %w",
						cur.index+1, r.total, cur.err)
				}
			}

			// Entries at or past the first failure are never written;
			// the registry stays a prefix of the enumeration.
			if abortErr == nil {
				if err := r.registerOne(writer, cur.v, cur.index, summary); err != nil {
					abortErr = err
				}
			}
			next++
		}
	}

	return abortErr
}
