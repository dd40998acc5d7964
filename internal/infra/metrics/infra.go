package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo, pgPoolConns, configCacheTotal) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "content_studio_build_info",
			Help: "Always 1; labels carry the running build.",
		},
		[]string{"version", "commit", "go_version"},
	)

	pgPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "content_studio_pg_pool_connections",
			Help: "pgxpool connections by state, sampled periodically.",
		},
		[]string{"state"}, // total | idle | acquired | max
	)

	configCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_studio_config_cache_lookups_total",
			Help: "Generation config cache lookups by outcome.",
		},
		[]string{"result"}, // hit | miss | error
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(norm(version), norm(commit), runtime.Version()).Set(1)
}

// SetPoolStats mirrors a pgxpool.Stat snapshot.
func SetPoolStats(total, idle, acquired, max int32) {
	pgPoolConns.WithLabelValues("total").Set(float64(total))
	pgPoolConns.WithLabelValues("idle").Set(float64(idle))
	pgPoolConns.WithLabelValues("acquired").Set(float64(acquired))
	pgPoolConns.WithLabelValues("max").Set(float64(max))
}

func IncConfigCache(result string) {
	configCacheTotal.WithLabelValues(norm(result)).Inc()
}
