package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsStartedTotal,
		jobsFinishedTotal,
		jobsRejectedTotal,
		promptTokens,
		contentWords,
		providerCallsTotal,
		providerRetriesTotal,
		streamDurationSec,
		staleJobsSweptTotal,
	)
}

var (
	jobsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_started_total",
			Help: "Jobs created and handed to the stream relay.",
		},
		[]string{"kind"},
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_finished_total",
			Help: "Jobs that reached a terminal state, by status and error code.",
		},
		[]string{"kind", "status", "code"},
	)

	jobsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_rejected_total",
			Help: "Requests refused before a job was created.",
		},
		[]string{"kind", "code"},
	)

	promptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_prompt_tokens_total",
			Help: "Estimated prompt tokens sent per provider/model.",
		},
		[]string{"provider", "model"},
	)

	contentWords = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_content_words",
			Help:    "Word count of completed content.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000},
		},
		[]string{"kind"},
	)

	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_provider_calls_total",
			Help: "Provider stream openings by outcome.",
		},
		[]string{"provider", "result"}, // ok | retryable | fatal
	)

	providerRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_provider_retries_total",
			Help: "Backoff waits scheduled after retryable provider errors.",
		},
		[]string{"provider"},
	)

	streamDurationSec = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_stream_duration_seconds",
			Help:    "Wall time from relay start to terminal event.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
		},
		[]string{"kind", "status"},
	)

	staleJobsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_stale_jobs_swept_total",
			Help: "Jobs moved from generating to error by the stale sweeper.",
		},
	)
)

func IncJobStarted(kind string) {
	jobsStartedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncJobFinished(kind, status, code string) {
	if code == "" {
		code = "none"
	}
	jobsFinishedTotal.WithLabelValues(norm(kind), norm(status), norm(code)).Inc()
}

func IncJobRejected(kind, code string) {
	jobsRejectedTotal.WithLabelValues(norm(kind), norm(code)).Inc()
}

func AddPromptTokens(provider, model string, n int) {
	if n <= 0 {
		return
	}
	promptTokens.WithLabelValues(norm(provider), norm(model)).Add(float64(n))
}

func ObserveContentWords(kind string, words int) {
	contentWords.WithLabelValues(norm(kind)).Observe(float64(words))
}

func IncProviderCall(provider, result string) {
	providerCallsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}

func IncProviderRetry(provider string) {
	providerRetriesTotal.WithLabelValues(norm(provider)).Inc()
}

func ObserveStreamDuration(kind, status string, d time.Duration) {
	streamDurationSec.WithLabelValues(norm(kind), norm(status)).Observe(d.Seconds())
}

func AddStaleJobsSwept(n int64) {
	if n > 0 {
		staleJobsSweptTotal.Add(float64(n))
	}
}
