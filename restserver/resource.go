// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/sirupsen/logrus"
	"net/http"
	"reflect"
	"sort"
	"sync"
)

// Getter is implemented by resources that support HTTP GET (and so
// HEAD).  The result is the response entity; nil means 204 No
// Content.
type Getter interface {
	Get(ctx context.Context, req *Request) (interface{}, error)
}

// Putter is implemented by resources that support HTTP PUT.  in is
// the request entity, read as the resource's representation type.
type Putter interface {
	Put(ctx context.Context, req *Request, in interface{}) (interface{}, error)
}

// Poster is implemented by resources that support HTTP POST.  It may
// return a Created value to report a new resource.
type Poster interface {
	Post(ctx context.Context, req *Request, in interface{}) (interface{}, error)
}

// Deleter is implemented by resources that support HTTP DELETE.
type Deleter interface {
	Delete(ctx context.Context, req *Request) (interface{}, error)
}

// Representer is implemented by resources that read a request entity
// of a specific type.  The request body of a PUT or POST is read as
// the type of the returned object.  Without it, the body is read as
// an untyped value.
type Representer interface {
	Representation() interface{}
}

// Namer is implemented by resources with a name for the root
// document and for URL building.  Without it, the resource is named
// by its path.
type Namer interface {
	ResourceName() string
}

// Created is returned from resource methods that want to indicate
// that a new resource was created.
type Created struct {
	// Location holds the canonical URL to the newly created
	// resource.
	Location string

	// Body contains the object sent in the body of the response.
	Body interface{}
}

// resource is one registered resource with its declarations.
type resource struct {
	factory    provider.ObjectFactory
	name       string
	path       string
	methods    []string
	produces   []mediatype.MediaType
	consumes   []mediatype.MediaType
	entityType reflect.Type
	priority   float64
	seq        uint64
}

func newResource(factory provider.ObjectFactory, priority float64) (*resource, error) {
	var err error
	proto := factory.Prototype()
	r := &resource{factory: factory, priority: priority}
	switch p := proto.(type) {
	case provider.Resource:
		r.path = p.Path()
	case provider.DynamicResource:
		r.path = p.DynamicPath()
	}
	r.name = r.path
	if n, ok := proto.(Namer); ok {
		r.name = n.ResourceName()
	}
	if _, ok := proto.(Getter); ok {
		r.methods = append(r.methods, http.MethodGet)
	}
	if _, ok := proto.(Putter); ok {
		r.methods = append(r.methods, http.MethodPut)
	}
	if _, ok := proto.(Poster); ok {
		r.methods = append(r.methods, http.MethodPost)
	}
	if _, ok := proto.(Deleter); ok {
		r.methods = append(r.methods, http.MethodDelete)
	}
	if p, ok := proto.(provider.Producer); ok {
		r.produces, err = mediatype.ParseList(p.Produces())
		if err != nil {
			return nil, err
		}
	}
	if c, ok := proto.(provider.Consumer); ok {
		r.consumes, err = mediatype.ParseList(c.Consumes())
		if err != nil {
			return nil, err
		}
	}
	if rp, ok := proto.(Representer); ok {
		r.entityType = reflect.TypeOf(rp.Representation())
	}
	return r, nil
}

// allows returns true if the resource supports method.
func (r *resource) allows(method string) bool {
	switch method {
	case http.MethodOptions:
		return true
	case http.MethodHead:
		method = http.MethodGet
	}
	for _, m := range r.methods {
		if m == method {
			return true
		}
	}
	return false
}

// allowed returns the value of an Allow: header.
func (r *resource) allowed() []string {
	result := make([]string, 0, len(r.methods)+2)
	for _, m := range r.methods {
		result = append(result, m)
		if m == http.MethodGet {
			result = append(result, http.MethodHead)
		}
	}
	return append(result, http.MethodOptions)
}

// declaredProduces returns the media types the resource may produce,
// with no declaration meaning */*.
func (r *resource) declaredProduces() []mediatype.MediaType {
	if len(r.produces) == 0 {
		return []mediatype.MediaType{mediatype.WildcardType}
	}
	return r.produces
}

// ResourceRegistry holds the set of registered resources.  It is safe
// for concurrent use.
type ResourceRegistry struct {
	// Logger receives registration messages.
	Logger logrus.FieldLogger

	validator *provider.Validator
	lock      sync.RWMutex
	resources []*resource
	paths     map[string]bool
	nextSeq   uint64
}

// NewResourceRegistry creates an empty resource registry.  Resource
// types are checked against v, which should be shared with the
// provider registry; if v is nil a new validator is created.
func NewResourceRegistry(v *provider.Validator) *ResourceRegistry {
	if v == nil {
		v = provider.NewValidator()
	}
	return &ResourceRegistry{
		Logger:    logrus.StandardLogger(),
		validator: v,
		paths:     make(map[string]bool),
	}
}

// AddResource registers a resource with a given priority.  Returns
// false if f does not create a valid resource, if its type is a
// static resource type that was already registered, or if some other
// resource already serves its path.
func (r *ResourceRegistry) AddResource(f provider.ObjectFactory, priority float64) bool {
	t := f.InstanceType()
	logger := r.Logger.WithFields(logrus.Fields{
		"type":     typeName(t),
		"priority": priority,
	})
	res, err := newResource(f, priority)
	if err != nil {
		logger.WithError(err).Warn("invalid media type declaration")
		return false
	}
	if !r.validator.IsValidResource(t) {
		return false
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.paths[res.path] {
		logger.WithField("path", res.path).Warn("path already registered, ignoring")
		return false
	}
	r.paths[res.path] = true
	res.seq = r.nextSeq
	r.nextSeq++
	r.resources = append(r.resources, res)
	logger.WithFields(logrus.Fields{
		"path":    res.path,
		"methods": res.methods,
	}).Debug("added resource")
	return true
}

// Add registers a resource at a given priority.  v may be the
// resource itself or an ObjectFactory that creates it.
func (r *ResourceRegistry) Add(v interface{}, priority float64) bool {
	factory, ok := v.(provider.ObjectFactory)
	if !ok {
		factory = provider.Singleton(v)
	}
	return r.AddResource(factory, priority)
}

// AddDefault registers a resource at provider.DefaultPriority.
func (r *ResourceRegistry) AddDefault(v interface{}) bool {
	return r.Add(v, provider.DefaultPriority)
}

// Len returns the number of registered resources.
func (r *ResourceRegistry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.resources)
}

// sorted returns the registered resources by priority and then
// registration order.
func (r *ResourceRegistry) sorted() []*resource {
	r.lock.RLock()
	result := make([]*resource, len(r.resources))
	copy(result, r.resources)
	r.lock.RUnlock()
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].priority != result[j].priority {
			return result[i].priority < result[j].priority
		}
		return result[i].seq < result[j].seq
	})
	return result
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
