// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package application describes a set of resources and providers
// that make up one REST application, and registers them with the
// provider and resource registries.
package application

import (
	"github.com/diffeo/go-wink/provider"
	"github.com/sirupsen/logrus"
	"reflect"
)

// Application lists the types and objects that make up an
// application.  Types are instantiated by the registries: provider
// types once, resource types once per request.  Singletons are used
// as is.
type Application interface {
	Classes() []reflect.Type
	Singletons() []interface{}
}

// Prioritized is implemented by applications whose providers and
// resources should be registered at some priority other than
// provider.DefaultPriority.  Lower values are preferred.
type Prioritized interface {
	Priority() float64
}

// InstanceSource is implemented by applications with additional
// objects, processed after the singletons and classes.  These may be
// provider.ObjectFactory values.
type InstanceSource interface {
	Instances() []interface{}
}

// Simple is a plain implementation of Application, Prioritized, and
// InstanceSource.
type Simple struct {
	ClassList     []reflect.Type
	SingletonList []interface{}
	InstanceList  []interface{}

	// PriorityValue is the registration priority.  If zero,
	// provider.DefaultPriority is used.
	PriorityValue float64
}

// Classes returns s.ClassList.
func (s *Simple) Classes() []reflect.Type {
	return s.ClassList
}

// Singletons returns s.SingletonList.
func (s *Simple) Singletons() []interface{} {
	return s.SingletonList
}

// Instances returns s.InstanceList.
func (s *Simple) Instances() []interface{} {
	return s.InstanceList
}

// Priority returns s.PriorityValue, or provider.DefaultPriority if
// it is zero.
func (s *Simple) Priority() float64 {
	if s.PriorityValue == 0 {
		return provider.DefaultPriority
	}
	return s.PriorityValue
}

// ResourceRegistry accepts resources.
type ResourceRegistry interface {
	AddResource(f provider.ObjectFactory, priority float64) bool
}

// Stats counts what Process did with an application's contents.
type Stats struct {
	Providers int
	Resources int
	Rejected  int
}

// PriorityOverrides changes the registration priority of specific
// types, regardless of the application they come from.
type PriorityOverrides interface {
	PriorityOf(t reflect.Type) (float64, bool)
}

// Processor registers the contents of applications.  Resources is
// optional; without it, resources are rejected.  Overrides is also
// optional.
type Processor struct {
	Providers *provider.Registry
	Resources ResourceRegistry
	Overrides PriorityOverrides
	Logger    logrus.FieldLogger
}

// NewProcessor creates a processor writing to the given registries.
func NewProcessor(providers *provider.Registry, resources ResourceRegistry) *Processor {
	return &Processor{
		Providers: providers,
		Resources: resources,
		Logger:    logrus.StandardLogger(),
	}
}

// Process registers the singletons, then the classes, then the
// instances of app.  Anything that is neither a provider nor a
// resource, or that the registries reject, is logged and skipped; a
// panic while registering one item is logged and does not stop the
// rest.
func (p *Processor) Process(app Application) Stats {
	var stats Stats
	priority := provider.DefaultPriority
	if pa, ok := app.(Prioritized); ok {
		priority = pa.Priority()
	}
	logger := p.logger().WithFields(logrus.Fields{
		"application": reflect.TypeOf(app).String(),
		"priority":    priority,
	})
	logger.Debug("processing application")

	for _, obj := range app.Singletons() {
		p.processItem(logger, &stats, provider.Singleton(obj), false, priority)
	}
	for _, t := range app.Classes() {
		if t == nil {
			stats.Rejected++
			logger.Warn("nil class, ignoring")
			continue
		}
		p.processItem(logger, &stats, provider.FromType(t), true, priority)
	}
	if is, ok := app.(InstanceSource); ok {
		for _, obj := range is.Instances() {
			factory, ok := obj.(provider.ObjectFactory)
			if !ok {
				factory = provider.Singleton(obj)
			}
			p.processItem(logger, &stats, factory, false, priority)
		}
	}

	logger.WithFields(logrus.Fields{
		"providers": stats.Providers,
		"resources": stats.Resources,
		"rejected":  stats.Rejected,
	}).Debug("processed application")
	return stats
}

func (p *Processor) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

// processItem registers one object.  If class is true the object was
// created from a type, and a resource gets a new instance for each
// request.
func (p *Processor) processItem(logger logrus.FieldLogger, stats *Stats, factory provider.ObjectFactory, class bool, priority float64) {
	t := factory.InstanceType()
	logger = logger.WithField("type", typeName(t))
	if p.Overrides != nil {
		if override, ok := p.Overrides.PriorityOf(t); ok {
			priority = override
			logger = logger.WithField("priority", priority)
		}
	}
	defer func() {
		if obj := recover(); obj != nil {
			stats.Rejected++
			logger.WithField("panic", obj).Error("failed to register")
		}
	}()

	ok := false
	role := provider.RoleOf(t)
	switch role {
	case provider.RoleProvider:
		ok = p.Providers != nil && p.Providers.Add(factory, priority)
		if ok {
			stats.Providers++
		}
	case provider.RoleResource, provider.RoleDynamicResource:
		if class {
			factory = provider.PerRequestType(t)
		}
		ok = p.Resources != nil && p.Resources.AddResource(factory, priority)
		if ok {
			stats.Resources++
		}
	default:
		logger.WithField("role", role.String()).Warn("neither a provider nor a resource, ignoring")
	}
	if !ok {
		stats.Rejected++
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
