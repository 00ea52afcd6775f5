// Package server exposes scene rendering over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/encoding/charmap"

	"github.com/ByLCY/quire/container"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/pipeline"
	"github.com/ByLCY/quire/scene"
)

// maxBody caps the size of a render request.
const maxBody = 4 << 20

// RenderRequest is the JSON body accepted by the render endpoints.
type RenderRequest struct {
	Source      string         `json:"source"`
	Data        map[string]any `json:"data,omitempty"`
	PageSize    string         `json:"pageSize,omitempty"`
	Orientation string         `json:"orientation,omitempty"`
	Charset     string         `json:"charset,omitempty"` // utf-8 (default) | latin1, string endpoint only
}

func (r RenderRequest) layout() layout.Request {
	return layout.Request{PageSize: r.PageSize, Orientation: r.Orientation}
}

// StringResponse is returned by POST /render/string.
type StringResponse struct {
	Pages   int    `json:"pages"`
	Content string `json:"content"`
}

// Server renders scene files on request. Every request gets its own container.
type Server struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	metrics  *pipeline.Metrics
	sink     container.SinkFactory
	opts     []container.Option
	upgrader websocket.Upgrader
}

type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry registers render metrics with reg and serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.gatherer = reg
		s.metrics = pipeline.NewMetrics(reg)
	}
}

// WithSink stores POST /render output through f; the location is reported in Content-Location.
func WithSink(f container.SinkFactory) Option {
	return func(s *Server) { s.sink = f }
}

// WithContainerOptions appends options applied to every per-request container.
func WithContainerOptions(opts ...container.Option) Option {
	return func(s *Server) { s.opts = append(s.opts, opts...) }
}

// New creates a server.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		gatherer: prometheus.DefaultGatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/render", func(r chi.Router) {
		r.Post("/", s.renderPDF)
		r.Post("/string", s.renderString)
		r.Get("/stream", s.renderStream)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) renderPDF(w http.ResponseWriter, r *http.Request) {
	req, c, ok := s.prepare(w, r)
	if !ok {
		return
	}
	b, err := c.ToBlob(r.Context(), req.layout())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", b.Type)
	if b.Location != "" {
		w.Header().Set("Content-Location", b.Location)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b.Bytes()); err != nil {
		s.logger.Warn("write response", "err", err)
	}
}

func (s *Server) renderString(w http.ResponseWriter, r *http.Request) {
	req, c, ok := s.prepare(w, r)
	if !ok {
		return
	}
	var opts []container.StringOption
	switch strings.ToLower(req.Charset) {
	case "", "utf-8", "utf8":
	case "latin1", "iso-8859-1":
		opts = append(opts, container.WithCharset(charmap.ISO8859_1))
	default:
		http.Error(w, "unsupported charset "+req.Charset, http.StatusBadRequest)
		return
	}

	out, err := c.ToString(r.Context(), req.layout(), opts...)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StringResponse{Pages: c.LayoutData().PageCount(), Content: out})
}

// prepare decodes the request and builds its container. It writes the error response itself.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (RenderRequest, *container.Container, bool) {
	var req RenderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, nil, false
	}
	c, err := s.build(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, nil, false
	}
	return req, c, true
}

func (s *Server) build(req RenderRequest) (*container.Container, error) {
	doc, err := dsl.ParseString(req.Source)
	if err != nil {
		return nil, err
	}
	opts := []container.Option{
		container.WithLogger(s.logger),
		container.WithMetrics(s.metrics),
	}
	if s.sink != nil {
		opts = append(opts, container.WithSink(s.sink))
	}
	c := container.New(append(opts, s.opts...)...)
	if err := c.Update(doc, req.Data); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// client went away
		s.logger.Debug("render canceled", "err", err, "request_id", middleware.GetReqID(r.Context()))
		return
	case errors.Is(err, layout.ErrLayout), errors.Is(err, scene.ErrScene):
		status = http.StatusUnprocessableEntity
	}
	s.logger.Error("render failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
