package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the voice pipeline.
type Metrics struct {
	// Recording session metrics
	RecordingsStarted   prometheus.Counter
	RecordingsCommitted prometheus.Counter
	RecordingsCancelled *prometheus.CounterVec
	RecordingDuration   prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter

	// Chat dispatch metrics
	ChatDispatches       prometheus.Counter
	ChatDispatchFailures prometheus.Counter

	// Synthesis and playback metrics, best-effort stages
	SynthesisRequests prometheus.Counter
	SynthesisFailures prometheus.Counter
	PlaybackFailures  prometheus.Counter
}

// New creates and registers all pipeline metrics on the given
// registerer. Pass prometheus.DefaultRegisterer for the bridge.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordingsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_recordings_started_total",
			Help: "Total number of recording sessions started",
		}),
		RecordingsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_recordings_committed_total",
			Help: "Total number of recordings that met the minimum duration",
		}),
		RecordingsCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_recordings_cancelled_total",
			Help: "Total number of cancelled recordings by reason",
		}, []string{"reason"}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicelink_recording_duration_seconds",
			Help:    "Duration of committed recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_transcription_requests_total",
			Help: "Total number of transcription requests issued",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_transcription_successes_total",
			Help: "Total number of transcriptions that returned text",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_transcription_failures_total",
			Help: "Total number of failed or empty transcriptions",
		}),
		ChatDispatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_chat_dispatches_total",
			Help: "Total number of chat dispatch requests issued",
		}),
		ChatDispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_chat_dispatch_failures_total",
			Help: "Total number of failed chat dispatches",
		}),
		SynthesisRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_synthesis_requests_total",
			Help: "Total number of synthesis requests issued",
		}),
		SynthesisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_synthesis_failures_total",
			Help: "Total number of failed synthesis requests",
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_failures_total",
			Help: "Total number of playback failures",
		}),
	}
}
