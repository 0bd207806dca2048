// Package pipeline drives a generation run: it enumerates the variant
// parameter space, invokes the external generator once per variant,
// appends one registry entry per variant, and stages the emitted
// artifacts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/pyragen/internal/generator"
	"github.com/zjrosen/pyragen/internal/git"
	"github.com/zjrosen/pyragen/internal/log"
	"github.com/zjrosen/pyragen/internal/pubsub"
	"github.com/zjrosen/pyragen/internal/registry"
	"github.com/zjrosen/pyragen/internal/variant"
)

// Event reports per-variant progress on the registrar's broker.
type Event struct {
	Variant variant.Variant
	Index   int // position in enumeration order, 0-based
	Total   int
	Err     error // set on FailedEvent
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	RunID      string
	Total      int
	Registered int
	Failed     int
	Duration   time.Duration
}

// Options configures a Registrar.
type Options struct {
	WarpCounts []int
	TileDims   []int

	Generator generator.Generator
	Stager    git.Stager

	// RegistryPath is the destination stream, truncated at run start.
	RegistryPath string

	// FireAndForget ignores generator failures and registers every
	// variant anyway, matching the historical script. When false, the
	// first failure aborts the run before the next variant.
	FireAndForget bool

	// Workers bounds concurrent generator invocations. 1 (or less)
	// means strictly sequential: variant N+1's generation does not
	// begin before variant N's registry line is appended.
	Workers int

	// Tracer is optional; nil disables span creation.
	Tracer trace.Tracer
}

// Registrar orchestrates one generation run.
type Registrar struct {
	opts   Options
	total  int
	broker *pubsub.Broker[Event]
	tracer trace.Tracer
}

// New creates a Registrar. The broker is live immediately so callers can
// subscribe before Run starts.
func New(opts Options) *Registrar {
	if opts.Stager == nil {
		opts.Stager = git.NopStager{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &Registrar{
		opts:   opts,
		total:  variant.Count(opts.WarpCounts, opts.TileDims),
		broker: pubsub.NewBroker[Event](),
		tracer: tracer,
	}
}

// Events exposes the progress broker.
func (r *Registrar) Events() *pubsub.Broker[Event] {
	return r.broker
}

// Total returns the number of variants the run will process.
func (r *Registrar) Total() int {
	return r.total
}

// Run executes the pipeline. The registry stream is opened (truncated)
// first, closed on every exit path, and holds the entries written so far
// even when the run aborts. The returned Summary is valid in all cases.
func (r *Registrar) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()

	summary := Summary{RunID: runID, Total: r.total}

	ctx, runSpan := r.tracer.Start(ctx, "pyragen.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("variants", r.total),
		attribute.Int("workers", max(1, r.opts.Workers)),
		attribute.Bool("fire_and_forget", r.opts.FireAndForget),
	))
	defer runSpan.End()

	log.Info(log.CatPipeline, "Run starting",
		"run_id", runID, "variants", r.total, "workers", max(1, r.opts.Workers))

	writer, err := registry.NewWriter(r.opts.RegistryPath)
	if err != nil {
		// No variant can be registered without the stream; fatal.
		runSpan.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	defer func() { _ = writer.Close() }()

	if !r.opts.Stager.IsGitRepo() {
		log.Warn(log.CatGit, "Not inside a git repository, staging disabled")
		r.opts.Stager = git.NopStager{}
	}

	if r.opts.Workers > 1 {
		err = r.runParallel(ctx, writer, &summary)
	} else {
		err = r.runSequential(ctx, writer, &summary)
	}

	if closeErr := writer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	summary.Duration = time.Since(start)
	if err != nil {
		runSpan.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatPipeline, "Run aborted", err,
			"run_id", runID, "registered", summary.Registered)
		return summary, err
	}

	runSpan.SetStatus(codes.Ok, "")
	log.Info(log.CatPipeline, "Run finished",
		"run_id", runID, "registered", summary.Registered,
		"failed", summary.Failed, "duration", summary.Duration)
	return summary, nil
}

// runSequential processes variants one at a time: generate, append the
// registry line, stage. Variant N+1 does not begin before N's line is
// appended.
func (r *Registrar) runSequential(ctx context.Context, writer *registry.Writer, summary *Summary) error {
	index := 0
	for v := range variant.Enumerate(r.opts.WarpCounts, r.opts.TileDims) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled after %d of %d variants: %w", index, r.total, err)
		}

		genErr := r.generateOne(ctx, v, index)
		if genErr != nil {
			summary.Failed++
			if !r.opts.FireAndForget {
				return fmt.Errorf("aborting after variant %d of %d: %w", index+1, r.total, genErr)
			}
		}

		if err := r.registerOne(writer, v, index, summary); err != nil {
			return err
		}
		index++
	}
	return nil
}

// generateOne invokes the generator for a single variant, with its own
// span and progress events.
func (r *Registrar) generateOne(ctx context.Context, v variant.Variant, index int) error {
	name := v.Name()
	ctx, span := r.tracer.Start(ctx, "pyragen.variant", trace.WithAttributes(
		attribute.String("name", name),
		attribute.Int("warps", v.Warps),
		attribute.Int("tile_width", v.TileWidth),
		attribute.Int("tile_height", v.TileHeight),
	))
	defer span.End()

	r.broker.Publish(pubsub.StartedEvent, Event{Variant: v, Index: index, Total: r.total})
	log.Debug(log.CatGen, "Generating variant", "name", name, "index", index)

	if err := r.opts.Generator.Generate(ctx, v); err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.broker.Publish(pubsub.FailedEvent, Event{Variant: v, Index: index, Total: r.total, Err: err})
		if r.opts.FireAndForget {
			// Historical behavior: outcome is not inspected, the
			// variant is registered regardless.
			log.Warn(log.CatGen, "Generator failed, continuing (fire-and-forget)",
				"name", name, "error", err)
		} else {
			log.ErrorErr(log.CatGen, "Generator failed", err, "name", name)
		}
		return err
	}

	span.SetStatus(codes.Ok, "")
	r.broker.Publish(pubsub.CompletedEvent, Event{Variant: v, Index: index, Total: r.total})
	return nil
}

// registerOne appends the variant's registry line and stages its
// artifacts. Registry write failures are fatal; staging failures are
// logged and ignored.
func (r *Registrar) registerOne(writer *registry.Writer, v variant.Variant, index int, summary *Summary) error {
	name := v.Name()
	if err := writer.Append(registry.Entry{Name: name}); err != nil {
		return err
	}
	summary.Registered++
	log.Debug(log.CatRegistry, "Registered variant", "name", name, "index", index)

	for _, path := range v.ArtifactPaths() {
		if err := r.opts.Stager.Add(path); err != nil {
			// Fire-and-forget toward version control: never aborts.
			log.Warn(log.CatGit, "Failed to stage artifact", "path", path, "error", err)
		}
	}
	return nil
}
