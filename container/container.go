// Package container owns a document tree and exposes its renders as a byte
// buffer, an assembled blob or an incrementally decoded string.
package container

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ByLCY/quire/blob"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/pipeline"
	"github.com/ByLCY/quire/renderer"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
	"github.com/ByLCY/quire/scene"
)

// SinkFactory opens the sink a ToBlob call streams into.
type SinkFactory func(ctx context.Context) (blob.Sink, error)

// Container is one document tree plus the machinery to render it.
// It is safe for concurrent use.
type Container struct {
	tree     *document.Tree
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	newSink  SinkFactory

	mu        sync.RWMutex
	latest    *layout.Result
	latestGen uint64
}

type config struct {
	layouter pipeline.Layouter
	encoder  renderer.Encoder
	logger   *slog.Logger
	metrics  *pipeline.Metrics
	sink     SinkFactory
	baseDir  string
}

// Option configures a Container.
type Option func(*config)

// WithLayouter replaces the default layout engine.
func WithLayouter(l pipeline.Layouter) Option {
	return func(c *config) { c.layouter = l }
}

// WithEncoder replaces the default PDF encoder.
func WithEncoder(e renderer.Encoder) Option {
	return func(c *config) { c.encoder = e }
}

// WithLogger sets the logger shared by the container and its default collaborators.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records render metrics.
func WithMetrics(m *pipeline.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithSink sets the sink factory used by ToBlob. The default assembles in memory.
func WithSink(f SinkFactory) Option {
	return func(c *config) {
		if f != nil {
			c.sink = f
		}
	}
}

// WithBaseDir sets the directory relative image and font paths resolve against.
func WithBaseDir(dir string) Option {
	return func(c *config) { c.baseDir = dir }
}

// New creates a container with an empty tree (a lone Root, dirty).
func New(opts ...Option) *Container {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sink: func(context.Context) (blob.Sink, error) {
			return blob.NewBuffer(), nil
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.layouter == nil || cfg.encoder == nil {
		r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: cfg.baseDir, Logger: cfg.logger})
		if cfg.layouter == nil {
			cfg.layouter = layout.NewEngine(r, layout.WithBaseDir(cfg.baseDir), layout.WithLogger(cfg.logger))
		}
		if cfg.encoder == nil {
			cfg.encoder = r
		}
	}

	c := &Container{
		tree:    document.NewTree(),
		logger:  cfg.logger,
		newSink: cfg.sink,
	}
	c.pipeline = pipeline.New(c.tree, cfg.layouter, cfg.encoder,
		pipeline.WithLogger(cfg.logger),
		pipeline.WithMetrics(cfg.metrics),
		pipeline.WithPublish(c.publish),
	)
	return c
}

// Tree returns the container-owned tree for direct mutation.
func (c *Container) Tree() *document.Tree { return c.tree }

// IsDirty reports whether the tree changed since the last successful render.
func (c *Container) IsDirty() bool { return c.tree.IsDirty() }

// LayoutData returns the artifact of the most recent successful render, nil before the first one.
func (c *Container) LayoutData() *layout.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Render starts a raw render pass. Most callers want ToBuffer, ToBlob or ToString.
func (c *Container) Render(ctx context.Context, req layout.Request) (*pipeline.OutputHandle, *pipeline.Future) {
	return c.pipeline.Render(ctx, req)
}

// Update rebuilds the tree from a DSL document, interpolating data into it.
func (c *Container) Update(doc *dsl.Document, data any) error {
	return scene.Build(c.tree, doc, data)
}

// publish keeps res unless a render of a newer snapshot already landed.
func (c *Container) publish(gen uint64, res *layout.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest != nil && gen < c.latestGen {
		c.logger.Debug("stale layout discarded", "generation", gen, "latest", c.latestGen)
		return
	}
	c.latest, c.latestGen = res, gen
}
