// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"context"
	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restdata"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"net/http"
	"sync"
)

// Server dispatches HTTP requests to registered resources, reading
// and writing entities through the provider registry.
type Server struct {
	// Providers holds the entity providers and exception mappers.
	Providers *provider.Registry

	// Resources holds the resources to serve.
	Resources *ResourceRegistry

	// Router receives a route for each resource when Handler()
	// is first called.  It may be a subrouter to place the
	// resources under a path prefix.
	Router *mux.Router

	// Clock times requests.
	Clock clock.Clock

	// Logger receives a debug message for every request.
	Logger logrus.FieldLogger

	once sync.Once
}

// New creates a server with a new router, the real clock, and the
// standard logger.  The provider and resource registries should
// share a validator.
func New(providers *provider.Registry, resources *ResourceRegistry) *Server {
	return &Server{
		Providers: providers,
		Resources: resources,
		Router:    mux.NewRouter(),
		Clock:     clock.New(),
		Logger:    logrus.StandardLogger(),
	}
}

// Handler returns the HTTP handler for all resources.  The first
// call adds routes for the resources registered so far, in priority
// order, followed by the root document at "/" unless a resource
// already serves it; resources registered later are not served.
func (s *Server) Handler() http.Handler {
	s.once.Do(s.populateRouter)
	return s.Router
}

// populateRouter adds all resource URL paths to the router.
func (s *Server) populateRouter() {
	hasRoot := false
	for _, res := range s.Resources.sorted() {
		if res.path == "/" {
			hasRoot = true
		}
		s.Router.Path(res.path).Name(res.name).Handler(&resourceHandler{server: s, resource: res})
	}
	if !hasRoot {
		root, err := newResource(provider.Singleton(&rootResource{server: s}), provider.SystemPriority)
		if err == nil {
			s.Router.Path(root.path).Name(root.name).Handler(&resourceHandler{server: s, resource: root})
		}
	}
	s.Logger.WithField("resources", s.Resources.Len()).Debug("populated router")
}

// rootResource serves the root document, listing every resource.
type rootResource struct {
	server *Server
}

func (*rootResource) Path() string         { return "/" }
func (*rootResource) ResourceName() string { return "root" }

func (r *rootResource) Get(ctx context.Context, req *Request) (interface{}, error) {
	resp := restdata.RootData{}
	var err error
	resp.URL, err = req.BuildURL("root")
	if err != nil {
		return nil, err
	}
	for _, res := range r.server.Resources.sorted() {
		route := r.server.Router.Get(res.name)
		if route == nil {
			// registered after the router was populated
			continue
		}
		short := restdata.ResourceShort{Methods: res.methods}
		short.Name = res.name
		short.URL = res.path
		if tpl, err := route.GetPathTemplate(); err == nil {
			short.URL = tpl
		}
		resp.Resources = append(resp.Resources, short)
	}
	return resp, nil
}
