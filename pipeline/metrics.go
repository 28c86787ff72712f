package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a pipeline. A nil *Metrics
// records nothing.
type Metrics struct {
	Samples         *prometheus.CounterVec
	BlockDuration   *prometheus.HistogramVec
	Errors          *prometheus.CounterVec
	Enabled         *prometheus.GaugeVec
	FloorGeneration *prometheus.GaugeVec
	FloorStable     *prometheus.GaugeVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Samples: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logmmse_block_samples_total",
			Help: "Input samples processed per block",
		}, []string{"block"}),

		BlockDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logmmse_block_duration_seconds",
			Help:    "Per-call block processing latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"block"}),

		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "logmmse_block_errors_total",
			Help: "Block processing failures",
		}, []string{"block"}),

		Enabled: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "logmmse_block_enabled",
			Help: "1 if the block is enabled, 0 if bypassed",
		}, []string{"block"}),

		FloorGeneration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "logmmse_floor_generation",
			Help: "Noise-floor updates since bootstrap",
		}, []string{"block"}),

		FloorStable: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "logmmse_floor_stable",
			Help: "1 once a measured noise floor has been committed",
		}, []string{"block"}),
	}
}

func (m *Metrics) observe(b Block, samples int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	name := b.Name()
	m.Samples.WithLabelValues(name).Add(float64(samples))
	m.BlockDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(name).Inc()
		return
	}

	if nr, ok := b.(*LogMMSEBlock); ok {
		st := nr.Stats()
		m.FloorGeneration.WithLabelValues(name).Set(float64(st.Generation))
		m.FloorStable.WithLabelValues(name).Set(boolGauge(st.Stable))
	}
}

func (m *Metrics) setEnabled(name string, enabled bool) {
	if m == nil {
		return
	}
	m.Enabled.WithLabelValues(name).Set(boolGauge(enabled))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
