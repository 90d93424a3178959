// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/restdata"
	"github.com/gorilla/mux"
	"net/http"
	"net/url"
	"strings"
)

// Request holds all of the information a resource method gets about
// the HTTP request, beyond its entity.
type Request struct {
	*http.Request

	// Vars holds the route variables from the resource's path,
	// still escaped.
	Vars map[string]string

	// QueryParams holds the parsed URL query string.
	QueryParams url.Values

	// Accept is the parsed Accept: header, which the server will
	// use to pick the response media type.
	Accept mediatype.Accept

	router *mux.Router
}

func newRequest(req *http.Request, router *mux.Router, accept mediatype.Accept) *Request {
	return &Request{
		Request:     req,
		Vars:        mux.Vars(req),
		QueryParams: req.URL.Query(),
		Accept:      accept,
		router:      router,
	}
}

// Var returns the route variable name, decoding it with
// restdata.MaybeDecodeName.  A missing variable or a bad encoding is
// a restdata.ErrBadRequest error.
func (req *Request) Var(name string) (string, error) {
	value, present := req.Vars[name]
	if !present {
		return "", restdata.ErrBadRequest{Err: errMissingVar{Name: name}}
	}
	decoded, err := restdata.MaybeDecodeName(value)
	if err != nil {
		return "", restdata.ErrBadRequest{Err: err}
	}
	return decoded, nil
}

type errMissingVar struct {
	Name string
}

func (e errMissingVar) Error() string {
	return "missing path parameter " + e.Name
}

// BoolParam looks at req.QueryParams for a parameter named name.  If
// it has a normally-truthy value (1, on, false, no, ...) then return
// that value.  Otherwise (empty string, foo, ...) return def.
func (req *Request) BoolParam(name string, def bool) bool {
	switch strings.ToLower(req.QueryParams.Get(name)) {
	case "0", "f", "n", "false", "off", "no":
		return false
	case "1", "t", "y", "true", "on", "yes":
		return true
	default:
		return def
	}
}

// BuildURL returns the URL of the named resource, filling in its
// route variables from pairs of names and (unescaped) values.
func (req *Request) BuildURL(name string, pairs ...string) (string, error) {
	var out string
	err := buildURLs(req.router, pairs...).URL(&out, name).Error
	return out, err
}
