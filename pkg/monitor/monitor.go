package monitor

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	monkit "github.com/spacemonkeygo/monkit/v3"
)

// Mon is the package-level monkit scope used by handlers to wrap
// request tasks. The monkit registry is exported alongside the
// prometheus registry on /metrics.
var Mon = monkit.Package()

var (
	globalRegistry *prometheus.Registry
	registryMutex  sync.RWMutex
)

// InitRegistry creates the global prometheus registry with the
// standard Go and process collectors plus the monkit adapter.
func InitRegistry() *prometheus.Registry {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if globalRegistry != nil {
		return globalRegistry
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewMonkitAdapter(monkit.Default),
	)

	globalRegistry = registry
	return registry
}

// Registry returns the global registry, initializing it if needed.
func Registry() *prometheus.Registry {
	registryMutex.RLock()
	r := globalRegistry
	registryMutex.RUnlock()
	if r != nil {
		return r
	}
	return InitRegistry()
}

// CreateMetricsHandler creates an HTTP handler for metrics exposure
func CreateMetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}
