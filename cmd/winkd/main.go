// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package winkd runs a demonstration REST service.  It registers the
// built-in entity providers and a small set of example resources:
// a note store, an echo service, a multipart inspector, and a greeting
// with its own HTML writer.
//
//     winkd -http :5980 -config wink.yaml -priority main.greetingHTML:0.1
package main

import (
	"flag"
	"github.com/diffeo/go-wink/application"
	"github.com/diffeo/go-wink/config"
	"github.com/diffeo/go-wink/entity"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restserver"
	"github.com/sirupsen/logrus"
)

func main() {
	var err error

	configFile := flag.String("config", "", "configuration YAML file")
	httpBind := flag.String("http", "", "[ip]:port for HTTP REST interface")
	logRequests := flag.Bool("log-requests", false, "log all requests")
	priorities := config.PriorityOverride{}
	flag.Var(&priorities, "priority", "type:priority override for a provider or resource")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("Could not load YAML configuration")
			return
		}
	}
	if *httpBind != "" {
		cfg.HTTP = *httpBind
	}
	if *logRequests {
		cfg.LogRequests = true
	}
	for name, priority := range priorities {
		cfg.Priorities[name] = priority
	}

	stdlog := logrus.StandardLogger()
	if err = cfg.ConfigureLogger(stdlog); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Bad log level")
		return
	}

	h := build(cfg, stdlog)
	if err = h.Serve(); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("HTTP server failed")
	}
}

// build assembles the registries, the example application, and the
// HTTP handler from a configuration.
func build(cfg config.Config, logger *logrus.Logger) *HTTP {
	validator := provider.NewValidator()
	validator.Logger = logger
	providers := provider.NewRegistry(validator)
	providers.Logger = logger
	entity.Register(providers)
	resources := restserver.NewResourceRegistry(validator)
	resources.Logger = logger

	processor := application.NewProcessor(providers, resources)
	processor.Overrides = cfg.Priorities
	processor.Logger = logger
	stats := processor.Process(newApplication())
	logger.WithFields(logrus.Fields{
		"providers": stats.Providers,
		"resources": stats.Resources,
		"rejected":  stats.Rejected,
	}).Info("Registered application")

	server := restserver.New(providers, resources)
	server.Logger = cfg.RequestLogger(logger)

	return &HTTP{
		server:    server,
		providers: providers,
		laddr:     cfg.HTTP,
		metrics:   cfg.Metrics,
	}
}
