// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

var providersDesc = prometheus.NewDesc(
	prometheus.BuildFQName("diffeo", "wink", "providers"),
	"Number of registered providers with each capability",
	[]string{"kind"},
	nil,
)

type registryMetrics struct {
	lookups *prometheus.CounterVec
}

func newRegistryMetrics() *registryMetrics {
	return &registryMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "diffeo",
				Subsystem: "wink",
				Name:      "provider_lookups_total",
				Help:      "Provider lookups by capability and cache result (none if uncached)",
			},
			[]string{
				"kind",
				"cache",
			},
		),
	}
}

// lookup counts a cached lookup, as a hit or a miss.
func (m *registryMetrics) lookup(kind Kind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.count(kind, result)
}

// uncached counts a lookup that never goes through the cache.
func (m *registryMetrics) uncached(kind Kind) {
	m.count(kind, "none")
}

func (m *registryMetrics) count(kind Kind, cache string) {
	m.lookups.With(prometheus.Labels{
		"kind":  kind.String(),
		"cache": cache,
	}).Inc()
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	ch <- providersDesc
	r.metrics.lookups.Describe(ch)
}

// Collect implements prometheus.Collector, reporting the number of
// providers of each kind and the number of lookups so far.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	counts := make(map[Kind]int)
	for _, e := range r.snapshot() {
		for _, kn := range kindNames {
			if e.kinds&kn.Kind != 0 {
				counts[kn.Kind]++
			}
		}
	}
	for _, kn := range kindNames {
		ch <- prometheus.MustNewConstMetric(
			providersDesc,
			prometheus.GaugeValue,
			float64(counts[kn.Kind]),
			kn.Name,
		)
	}
	r.metrics.lookups.Collect(ch)
}
