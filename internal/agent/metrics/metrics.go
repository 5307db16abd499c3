// Package metrics declares the Prometheus collectors of a capture session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames pulled from the capture source.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yaulta_frames_total",
			Help: "Total number of frames captured",
		},
		[]string{"interface"},
	)

	// SourceErrorsTotal counts failed frame pulls.
	SourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yaulta_source_errors_total",
			Help: "Total number of failed frame reads",
		},
		[]string{"interface"},
	)

	SinkRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yaulta_sink_records_total",
			Help: "Total number of records handed to a sink, by outcome",
		},
		[]string{"sink", "outcome"},
	)

	// BusAckSeconds measures publish-to-ack latency of the bus sink.
	BusAckSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yaulta_bus_ack_seconds",
			Help:    "Latency between publish and acknowledgment in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
		},
	)

	HintsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yaulta_payload_hints_total",
			Help: "Total number of payload heuristics hits",
		},
		[]string{"kind"},
	)
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"

	HintHTTP = "http_request"
	HintTLS  = "tls_handshake"
)
