// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides an HTTP REST client that reads and
// writes entities through the same provider registry as the matching
// server in the "restserver" package.
//
// The server in github.com/diffeo/go-wink/cmd/winkd can run a
// compatible REST server.  Create a client around a registry with the
// built-in providers and fetch the root document from the base URL of
// that service; for instance,
//
//     providers := provider.NewRegistry(nil)
//     entity.Register(providers)
//     root, err := restclient.New(providers).Root(ctx, "http://localhost:5980/")
//     var n note
//     err = root.GetNamed(ctx, "note", map[string]interface{}{"name": "a"}, &n)
package restclient

import (
	"context"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restdata"
	"github.com/sirupsen/logrus"
	"net/http"
	"net/url"
)

// Client holds the settings shared by all requests.
type Client struct {
	// HTTPClient performs the requests.
	HTTPClient *http.Client

	// Providers reads and writes entities.
	Providers *provider.Registry

	// ContentType, if set, is the media type request bodies are
	// sent as.  Otherwise the first concrete type a writer
	// declares for the body is used.
	ContentType mediatype.MediaType

	// Accept, if set, is sent as the Accept: header.  Otherwise
	// it lists every type a reader can read the response as.
	Accept string

	// Logger receives a debug message for every request.
	Logger logrus.FieldLogger
}

// New creates a new client using the default HTTP client and the
// standard logger.
func New(providers *provider.Registry) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Providers:  providers,
		Logger:     logrus.StandardLogger(),
	}
}

// Resource returns a resource at an absolute URL.
func (c *Client) Resource(rawURL string) (*Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, ErrRelativeURL{URL: rawURL}
	}
	return &Resource{URL: u, Client: c}, nil
}

// Root fetches the root document of a REST service.
func (c *Client) Root(ctx context.Context, baseURL string) (*Root, error) {
	resource, err := c.Resource(baseURL)
	if err != nil {
		return nil, err
	}
	root := &Root{Resource: *resource}
	if err := root.Refresh(ctx); err != nil {
		return nil, err
	}
	return root, nil
}

// ErrRelativeURL is returned from Client.Resource() if the URL is
// not absolute.
type ErrRelativeURL struct {
	URL string
}

func (e ErrRelativeURL) Error() string {
	return fmt.Sprintf("URL %q is not absolute", e.URL)
}

// ErrNoResource is returned when the root document does not list a
// resource.
type ErrNoResource struct {
	Name string
}

func (e ErrNoResource) Error() string {
	return fmt.Sprintf("no resource named %q", e.Name)
}

// Root is the root document of a REST service, which names every
// other resource.
type Root struct {
	Resource
	Representation restdata.RootData
}

// Refresh fetches the root document again.
func (r *Root) Refresh(ctx context.Context) error {
	r.Representation = restdata.RootData{}
	return r.Get(ctx, &r.Representation)
}

// Named returns the resource with a given name, expanding its URL
// template with vars.
func (r *Root) Named(name string, vars map[string]interface{}) (*Resource, error) {
	for _, res := range r.Representation.Resources {
		if res.Name == name {
			return r.At(res.URL, vars)
		}
	}
	return nil, ErrNoResource{Name: name}
}

// GetNamed retrieves the named resource into out.
func (r *Root) GetNamed(ctx context.Context, name string, vars map[string]interface{}, out interface{}) error {
	res, err := r.Named(name, vars)
	if err == nil {
		err = res.Get(ctx, out)
	}
	return err
}
