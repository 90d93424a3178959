// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"github.com/diffeo/go-wink/provider"
	"github.com/prometheus/client_golang/prometheus"
	"strconv"
	"sync"
)

var httpRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "diffeo",
		Subsystem: "wink",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method and status code",
	},
	[]string{
		"method",
		"code",
	},
)

var registerOnce sync.Once

// registerMetrics adds the request counter and the provider registry's
// lookup metrics to the default Prometheus registry.
func registerMetrics(providers *provider.Registry) {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests)
		prometheus.MustRegister(providers)
	})
}

func observeRequest(method string, status int) {
	httpRequests.With(prometheus.Labels{
		"method": method,
		"code":   strconv.Itoa(status),
	}).Inc()
}
