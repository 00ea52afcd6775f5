package layout

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ByLCY/quire/document"
)

// Engine 是默认的布局协作者：把节点树快照交给 Build，并记录耗时。
type Engine struct {
	typesetter Typesetter
	baseDir    string
	logger     *slog.Logger
}

// NewEngine creates a layout engine measuring text with ts.
func NewEngine(ts Typesetter, opts ...Option) *Engine {
	e := &Engine{
		typesetter: ts,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout computes the artifact for one snapshot. The snapshot is never modified.
func (e *Engine) Layout(ctx context.Context, snap document.Snapshot, req Request) (*Result, error) {
	start := time.Now()
	res, err := Build(ctx, snap.Root, req, BuildOptions{
		Typesetter: e.typesetter,
		BaseDir:    e.baseDir,
	})
	if err != nil {
		e.logger.Debug("layout failed", "generation", snap.Generation, "err", err)
		return nil, err
	}
	e.logger.Debug("layout done",
		"generation", snap.Generation,
		"pages", len(res.Pages),
		"nodes", len(res.Nodes),
		"elapsed", time.Since(start),
	)
	return res, nil
}
