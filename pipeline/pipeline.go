// Package pipeline runs one render pass: snapshot the tree, lay it out, encode the
// layout into a chunked output handle, then settle the layout future.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

const tracerName = "github.com/ByLCY/quire/pipeline"

// Layouter computes the layout artifact for a tree snapshot.
type Layouter interface {
	Layout(ctx context.Context, snap document.Snapshot, req layout.Request) (*layout.Result, error)
}

// LayouterFunc adapts a function to Layouter.
type LayouterFunc func(ctx context.Context, snap document.Snapshot, req layout.Request) (*layout.Result, error)

func (f LayouterFunc) Layout(ctx context.Context, snap document.Snapshot, req layout.Request) (*layout.Result, error) {
	return f(ctx, snap, req)
}

// Pipeline renders the tree it was built with. Concurrent Render calls are
// independent: each gets its own snapshot, handle and future.
type Pipeline struct {
	tree     *document.Tree
	layouter Layouter
	encoder  renderer.Encoder
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	publish  func(uint64, *layout.Result)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records render outcomes and stage durations.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithPublish registers a hook called with the snapshot generation and artifact
// of every successful render, after the dirty flag is cleared and before the
// future resolves. Renders may finish out of order.
func WithPublish(fn func(generation uint64, res *layout.Result)) Option {
	return func(p *Pipeline) { p.publish = fn }
}

// New creates a pipeline over tree.
func New(tree *document.Tree, layouter Layouter, encoder renderer.Encoder, opts ...Option) *Pipeline {
	p := &Pipeline{
		tree:     tree,
		layouter: layouter,
		encoder:  encoder,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render starts one render pass. The snapshot is taken before Render returns,
// so mutations made afterwards never leak into this pass. Bytes are produced in
// the background; the handle and the future settle together.
func (p *Pipeline) Render(ctx context.Context, req layout.Request) (*OutputHandle, *Future) {
	snap := p.tree.Snapshot()
	h := newOutputHandle()
	f := newFuture()
	go p.run(ctx, snap, req, h, f)
	return h, f
}

func (p *Pipeline) run(ctx context.Context, snap document.Snapshot, req layout.Request, h *OutputHandle, f *Future) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "quire.render",
		trace.WithAttributes(attribute.Int64("quire.generation", int64(snap.Generation))),
	)
	defer span.End()

	res, err := p.layout(ctx, snap, req)
	if err != nil {
		p.settleFailure(span, h, f, OutcomeLayoutError, err)
		return
	}
	if err := p.encode(ctx, res, req, h); err != nil {
		p.settleFailure(span, h, f, OutcomeEncodeError, err)
		return
	}

	written := h.Written()
	cleared := p.tree.Tracker().MarkClean(snap.Generation)
	if p.publish != nil {
		p.publish(snap.Generation, res)
	}
	p.metrics.recordOutcome(OutcomeSuccess, written)
	f.resolve(res)
	h.finish()

	span.SetAttributes(attribute.Int64("quire.bytes", written), attribute.Int("quire.pages", res.PageCount()))
	span.SetStatus(codes.Ok, "")
	p.logger.Debug("render done",
		"generation", snap.Generation,
		"pages", res.PageCount(),
		"bytes", written,
		"clean", cleared,
		"elapsed", time.Since(start),
	)
}

func (p *Pipeline) layout(ctx context.Context, snap document.Snapshot, req layout.Request) (res *layout.Result, err error) {
	ctx, span := p.tracer.Start(ctx, "quire.layout")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.observeStage(stageLayout, time.Since(start)) }()
	defer recoverStage("layout", &err)

	res, err = p.layouter.Layout(ctx, snap, req)
	if err == nil && res == nil {
		err = fmt.Errorf("%w: layout produced no result", layout.ErrLayout)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (p *Pipeline) encode(ctx context.Context, res *layout.Result, req layout.Request, w io.Writer) (err error) {
	ctx, span := p.tracer.Start(ctx, "quire.encode")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.observeStage(stageEncode, time.Since(start)) }()
	defer recoverStage("encode", &err)

	if err = p.encoder.Encode(ctx, res, req, w); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// settleFailure fails the handle and rejects the future with the same error.
// The dirty flag is left as is and nothing is published.
func (p *Pipeline) settleFailure(span trace.Span, h *OutputHandle, f *Future, outcome string, err error) {
	p.metrics.recordOutcome(outcome, 0)
	f.reject(err)
	h.fail(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Warn("render failed", "stage", outcome, "err", err)
}

func recoverStage(stage string, err *error) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%s panicked: %v", stage, rec)
	}
}
