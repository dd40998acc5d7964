package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(limiterInFlight, limiterWaiting, limiterCapacity, limiterWaitSec, limiterTimeoutsTotal)
}

var (
	limiterInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_limiter_in_flight",
		Help: "Provider calls currently holding a permit.",
	})

	limiterWaiting = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_limiter_waiting",
		Help: "Callers queued for a permit.",
	})

	limiterCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_limiter_capacity",
		Help: "Configured maximum concurrent provider calls.",
	})

	limiterWaitSec = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "provider_limiter_wait_seconds",
		Help:    "Time spent waiting for a permit.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
	})

	limiterTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "provider_limiter_timeouts_total",
		Help: "Acquisitions abandoned after the acquire timeout.",
	})
)

func SetLimiterCapacity(n int) { limiterCapacity.Set(float64(n)) }

func SetLimiterState(inFlight, waiting int) {
	limiterInFlight.Set(float64(inFlight))
	limiterWaiting.Set(float64(waiting))
}

func ObserveLimiterWait(d time.Duration) { limiterWaitSec.Observe(d.Seconds()) }

func IncLimiterTimeout() { limiterTimeoutsTotal.Inc() }
