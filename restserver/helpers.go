// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains various HTTP-related helpers.

import (
	"fmt"
	"github.com/diffeo/go-wink/restdata"
	"github.com/gorilla/mux"
	"io"
	"net/http"
	"net/url"
)

type urlBuilder struct {
	Router *mux.Router
	Params []string
	Error  error
}

func buildURLs(router *mux.Router, params ...string) *urlBuilder {
	// Encode all of the values in params
	for i, value := range params {
		if i%2 == 1 {
			params[i] = restdata.MaybeEncodeName(value)
		}
	}
	return &urlBuilder{Router: router, Params: params}
}

func (u *urlBuilder) Route(route string) *mux.Route {
	if u.Error != nil {
		return nil
	}
	if u.Router == nil {
		u.Error = fmt.Errorf("No router to find route %q", route)
		return nil
	}
	r := u.Router.Get(route)
	if r == nil {
		u.Error = fmt.Errorf("No such route %q", route)
	}
	return r
}

func (u *urlBuilder) URL(out *string, route string) *urlBuilder {
	var r *mux.Route
	var url *url.URL
	if u.Error == nil {
		r = u.Route(route)
	}
	if u.Error == nil {
		url, u.Error = r.URL(u.Params...)
	}
	if u.Error == nil {
		*out = url.String()
	}
	return u
}

// lazyResponse delays sending the HTTP status line until the body is
// first written, so that the entity writer can still change headers.
type lazyResponse struct {
	resp    http.ResponseWriter
	status  int
	started bool
	written int64
}

func (l *lazyResponse) start() {
	if !l.started {
		l.started = true
		l.resp.WriteHeader(l.status)
	}
}

func (l *lazyResponse) Write(b []byte) (int, error) {
	l.start()
	n, err := l.resp.Write(b)
	l.written += int64(n)
	return n, err
}

// discard is an entity sink for HEAD responses.  It still sends
// headers, but drops the body.
type discard struct {
	l *lazyResponse
}

func (d discard) Write(b []byte) (int, error) {
	d.l.start()
	return io.Discard.Write(b)
}
