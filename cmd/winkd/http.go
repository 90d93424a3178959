// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restserver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
	"net/http"
)

// HTTP serves the REST resources and metrics.
type HTTP struct {
	server    *restserver.Server
	providers *provider.Registry
	laddr     string
	metrics   bool
}

// Handler builds the complete handler: panic recovery and request
// counting wrapped around the resource router.
func (h *HTTP) Handler() http.Handler {
	if h.metrics {
		registerMetrics(h.providers)
		h.server.Router.Handle("/metrics", promhttp.Handler())
	}
	recovery := negroni.NewRecovery()
	recovery.PrintStack = false
	n := negroni.New(recovery, negroni.HandlerFunc(countRequests))
	n.UseHandler(h.server.Handler())
	return n
}

// Serve runs an HTTP server on the configured local address.  This
// serves connections until the listener fails.
func (h *HTTP) Serve() error {
	logrus.WithField("addr", h.laddr).Info("Serving HTTP")
	return http.ListenAndServe(h.laddr, h.Handler())
}

// countRequests is negroni middleware that records every response in
// the request metrics.
func countRequests(rw http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	next(rw, req)
	status := http.StatusOK
	if nrw, ok := rw.(negroni.ResponseWriter); ok && nrw.Status() != 0 {
		status = nrw.Status()
	}
	observeRequest(req.Method, status)
}
