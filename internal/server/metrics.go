package server

import "github.com/prometheus/client_golang/prometheus"

var (
	metricCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperd",
			Subsystem: "stdio",
			Name:      "commands_total",
			Help:      "Total stdio commands by command and outcome",
		},
		[]string{"command", "status"},
	)

	metricCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "whisperd",
			Subsystem: "stdio",
			Name:      "command_duration_seconds",
			Help:      "Stdio command handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(metricCommands, metricCommandDuration)
}
