// Package metrics holds the prometheus collectors of the service. Each file
// queues its collectors from init; cmd/app registers them once at startup.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	queued       []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	queued = append(queued, cs...)
}

// MustRegister adds every queued collector to the default registry.
// Calls after the first are no-ops.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(queued...)
	})
}

// norm lowercases label values and maps blanks to "unknown" to keep
// cardinality predictable.
func norm(v string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
		return v
	}
	return "unknown"
}
