// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meetscript"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsClosed  prometheus.Counter
	PassDuration    *prometheus.HistogramVec

	// Buffer metrics
	ChunksEnqueued     prometheus.Counter
	ChunksRejected     prometheus.Counter
	DrainsTotal        prometheus.Counter
	DrainForcedCutoffs prometheus.Counter
	GapMillisFilled    prometheus.Counter
	OverlapsMixed      prometheus.Counter

	// Segment metrics
	SegmentsFinal   prometheus.Counter
	SegmentsPartial prometheus.Counter
	SilenceFlushes  prometheus.Counter

	// Connection metrics
	ProviderFramesReceived prometheus.Counter
	ProviderBytesReceived  prometheus.Counter
	ProviderFramesDropped  prometheus.Counter
	ObserversActive        prometheus.Gauge

	// Engine metrics
	RecognizeLatency *prometheus.HistogramVec
	RecognizeErrors  *prometheus.CounterVec
	TranslateLatency *prometheus.HistogramVec
	TranslateErrors  *prometheus.CounterVec

	// Storage metrics
	RecordsPersisted       prometheus.Counter
	RecordConflicts        prometheus.Counter
	TranslationsBackfilled prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of meeting sessions started",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of meeting sessions closed",
		}),
		PassDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of scheduler passes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"pass"}),

		ChunksEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_enqueued_total",
			Help:      "Total number of audio chunks accepted into the buffer",
		}),
		ChunksRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_rejected_total",
			Help:      "Total number of audio chunks rejected due to backpressure",
		}),
		DrainsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_drains_total",
			Help:      "Total number of non-empty buffer drains",
		}),
		DrainForcedCutoffs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_forced_cutoffs_total",
			Help:      "Total number of drains cut short by an oversized gap",
		}),
		GapMillisFilled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gap_millis_filled_total",
			Help:      "Total milliseconds of silence inserted to fill timing gaps",
		}),
		OverlapsMixed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlaps_mixed_total",
			Help:      "Total number of overlapping chunks mixed into the span",
		}),

		SegmentsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_final_total",
			Help:      "Total number of finalized transcript segments",
		}),
		SegmentsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_partial_total",
			Help:      "Total number of partial transcript segments",
		}),
		SilenceFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "silence_flushes_total",
			Help:      "Total number of partial results force-finalized by silence",
		}),

		ProviderFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_frames_received_total",
			Help:      "Total audio frames received from provider connections",
		}),
		ProviderBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_bytes_received_total",
			Help:      "Total audio bytes received from provider connections",
		}),
		ProviderFramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_frames_dropped_total",
			Help:      "Total frames discarded from non-active provider connections",
		}),
		ObserversActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observers_active",
			Help:      "Number of currently connected observer connections",
		}),

		RecognizeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognize_latency_seconds",
			Help:      "Recognition engine call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		RecognizeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognize_errors_total",
			Help:      "Total number of recognition engine errors",
		}, []string{"provider"}),
		TranslateLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translate_latency_seconds",
			Help:      "Translation engine call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider"}),
		TranslateErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translate_errors_total",
			Help:      "Total number of translation engine errors",
		}, []string{"provider"}),

		RecordsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Total number of meeting records persisted",
		}),
		RecordConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_conflicts_total",
			Help:      "Total number of duplicate-record write conflicts",
		}),
		TranslationsBackfilled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_backfilled_total",
			Help:      "Total number of translation slots backfilled",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a meeting session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
}

// RecordSessionClose records a meeting session closing.
func (m *Metrics) RecordSessionClose() {
	m.SessionsClosed.Inc()
}

// RecordPass records the duration of one scheduler pass.
func (m *Metrics) RecordPass(pass string, seconds float64) {
	m.PassDuration.WithLabelValues(pass).Observe(seconds)
}

// RecordEnqueue records an accepted or rejected chunk enqueue.
func (m *Metrics) RecordEnqueue(accepted bool) {
	if accepted {
		m.ChunksEnqueued.Inc()
	} else {
		m.ChunksRejected.Inc()
	}
}

// RecordDrain records a non-empty drain and whether it was forced short.
func (m *Metrics) RecordDrain(forced bool) {
	m.DrainsTotal.Inc()
	if forced {
		m.DrainForcedCutoffs.Inc()
	}
}

// RecordGapFilled records silence inserted to bridge a timing gap.
func (m *Metrics) RecordGapFilled(millis int64) {
	m.GapMillisFilled.Add(float64(millis))
}

// RecordOverlapMixed records an overlapping chunk mixed into the span.
func (m *Metrics) RecordOverlapMixed() {
	m.OverlapsMixed.Inc()
}

// RecordSegments records the output of one transcription pass.
func (m *Metrics) RecordSegments(final, partial int) {
	m.SegmentsFinal.Add(float64(final))
	m.SegmentsPartial.Add(float64(partial))
}

// RecordSilenceFlush records a partial result force-finalized by silence.
func (m *Metrics) RecordSilenceFlush() {
	m.SilenceFlushes.Inc()
}

// RecordProviderFrame records a frame received from the active provider.
func (m *Metrics) RecordProviderFrame(bytes int) {
	m.ProviderFramesReceived.Inc()
	m.ProviderBytesReceived.Add(float64(bytes))
}

// RecordProviderDrop records a frame discarded from a non-active provider.
func (m *Metrics) RecordProviderDrop() {
	m.ProviderFramesDropped.Inc()
}

// RecordRecognize records a recognition engine call.
func (m *Metrics) RecordRecognize(provider string, err error, seconds float64) {
	m.RecognizeLatency.WithLabelValues(provider).Observe(seconds)
	if err != nil {
		m.RecognizeErrors.WithLabelValues(provider).Inc()
	}
}

// RecordTranslate records a translation engine call.
func (m *Metrics) RecordTranslate(provider string, err error, seconds float64) {
	m.TranslateLatency.WithLabelValues(provider).Observe(seconds)
	if err != nil {
		m.TranslateErrors.WithLabelValues(provider).Inc()
	}
}

// RecordPersist records a record write, conflicted or not.
func (m *Metrics) RecordPersist(conflict bool) {
	if conflict {
		m.RecordConflicts.Inc()
	} else {
		m.RecordsPersisted.Inc()
	}
}

// RecordBackfill records translation slots filled by one backfill pass.
func (m *Metrics) RecordBackfill(count int) {
	m.TranslationsBackfilled.Add(float64(count))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
