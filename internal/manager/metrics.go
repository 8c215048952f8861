package manager

import (
	"github.com/prometheus/client_golang/prometheus"

	"whisperd/internal/progress"
	"whisperd/pkg/types"
)

var (
	metricModelLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperd",
			Name:      "model_loads_total",
			Help:      "Total model load attempts by outcome",
		},
		[]string{"status"},
	)

	metricModelEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperd",
			Name:      "model_evictions_total",
			Help:      "Total model evictions",
		},
	)

	metricResidentModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "whisperd",
			Name:      "resident_models",
			Help:      "Models currently resident in the cache",
		},
	)

	metricDownloadPct = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "whisperd",
			Name:      "download_percentage",
			Help:      "Estimated completion percentage of in-flight downloads",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(metricModelLoads, metricModelEvictions, metricResidentModels, metricDownloadPct)
}

// metricsSink wraps the configured sink so progress events also feed the
// download gauge.
func (m *Manager) metricsSink() progress.Sink {
	return progressSink{next: m.cfg.Sink}
}

type progressSink struct {
	next progress.Sink
}

func (s progressSink) Progress(ev types.ProgressEvent) {
	metricDownloadPct.WithLabelValues(ev.Model).Set(ev.Percentage)
	s.next.Progress(ev)
}

func (s progressSink) Complete(ev types.CompleteEvent) {
	metricDownloadPct.WithLabelValues(ev.Model).Set(ev.Percentage)
	s.next.Complete(ev)
}
