package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	monkit "github.com/spacemonkeygo/monkit/v3"
)

// MonkitAdapter exposes monkit task metrics through a prometheus
// registry so one /metrics endpoint serves both.
type MonkitAdapter struct {
	registry *monkit.Registry
}

// NewMonkitAdapter creates a new Monkit to Prometheus adapter
func NewMonkitAdapter(registry *monkit.Registry) *MonkitAdapter {
	return &MonkitAdapter{registry: registry}
}

// Describe implements prometheus.Collector (no-op for dynamic metrics)
func (a *MonkitAdapter) Describe(ch chan<- *prometheus.Desc) {}

// Collect converts monkit series to prometheus gauges
func (a *MonkitAdapter) Collect(ch chan<- prometheus.Metric) {
	collected := make(map[string]prometheus.Metric)

	a.registry.Stats(func(key monkit.SeriesKey, field string, value float64) {
		if a.shouldSkipField(field) {
			return
		}

		labelNames := make([]string, 0, 4)
		labelValues := make([]string, 0, 4)

		if key.Tags != nil {
			tags := key.Tags.All()
			tagKeys := make([]string, 0, len(tags))
			for k := range tags {
				tagKeys = append(tagKeys, k)
			}
			sort.Strings(tagKeys)

			for _, k := range tagKeys {
				labelNames = append(labelNames, k)
				labelValues = append(labelValues, tags[k])
			}
		}

		if field != "" && a.isEssentialField(field) {
			labelNames = append(labelNames, "field")
			labelValues = append(labelValues, field)
		}

		desc := prometheus.NewDesc(key.Measurement, key.Measurement, labelNames, nil)
		metric := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, labelValues...)

		id := fmt.Sprintf("%s{%s=%s}", key.Measurement, strings.Join(labelNames, ","), strings.Join(labelValues, ","))
		collected[id] = metric
	})

	for _, metric := range collected {
		ch <- metric
	}
}

// shouldSkipField filters high-cardinality percentile fields
func (a *MonkitAdapter) shouldSkipField(field string) bool {
	switch {
	case strings.HasPrefix(field, "r"), strings.HasPrefix(field, "f"):
		return strings.Contains(field, "quantile")
	default:
		return false
	}
}

// isEssentialField keeps only low-cardinality summary fields
func (a *MonkitAdapter) isEssentialField(field string) bool {
	switch field {
	case "count", "sum", "min", "max", "avg", "current", "total", "successes", "errors":
		return true
	}
	return false
}
