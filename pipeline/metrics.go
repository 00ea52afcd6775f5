package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render outcomes recorded in quire_renders_total.
const (
	OutcomeSuccess     = "success"
	OutcomeLayoutError = "layout_error"
	OutcomeEncodeError = "encode_error"
)

const (
	stageLayout = "layout"
	stageEncode = "encode"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	renders *prometheus.CounterVec
	stage   *prometheus.HistogramVec
	bytes   prometheus.Counter
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quire",
			Name:      "renders_total",
			Help:      "Total number of render passes by outcome",
		}, []string{"outcome"}),
		stage: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quire",
			Name:      "render_stage_seconds",
			Help:      "Duration of the layout and encode stages in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quire",
			Name:      "render_bytes_total",
			Help:      "Total number of encoded bytes produced",
		}),
	}
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stage.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) recordOutcome(outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.bytes.Add(float64(bytes))
	}
}
