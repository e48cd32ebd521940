package as2

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirosfoundation/go-as2/pkg/protocol"
)

// Metrics records extraction outcomes
type Metrics struct {
	extractions *prometheus.CounterVec
	layers      *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetrics creates the extraction metrics under namespace and registers
// them with reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "total",
				Help:      "EDI payload extractions by outcome.",
			},
			[]string{"outcome"},
		),
		layers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "layers_total",
				Help:      "Security layers stripped during extraction.",
			},
			[]string{"layer"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "duration_seconds",
				Help:      "EDI payload extraction duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.extractions, m.layers, m.duration)
	}
	return m
}

func (m *Metrics) recordLayer(l layer) {
	if m == nil {
		return
	}
	m.layers.WithLabelValues(l.String()).Inc()
}

func (m *Metrics) recordExtraction(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome(err)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// outcome maps err to a metric label
func outcome(err error) string {
	switch protocol.KindOf(err) {
	case nil:
		if err != nil {
			return "error"
		}
		return "success"
	case protocol.ErrMissingContentType:
		return "missing_content_type"
	case protocol.ErrUnsupportedContentType:
		return "unsupported_content_type"
	case protocol.ErrUnknownSmimeType:
		return "unknown_smime_type"
	case protocol.ErrMissingPrivateKey:
		return "missing_private_key"
	case protocol.ErrNullEntity:
		return "null_entity"
	case protocol.ErrUnsupportedNestedType:
		return "unsupported_nested_type"
	case protocol.ErrProtocolFormat:
		return "protocol_format"
	case protocol.ErrDecryption:
		return "decryption"
	case protocol.ErrDecompression:
		return "decompression"
	default:
		return "error"
	}
}
