// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains the request dispatcher.
//
// The bulk of this is dealing with HTTP content type negotiation and
// getting entities in and out through the provider registry.  The
// response media type is checked against the resource's declared
// types before anything else happens, so that a request that cannot
// succeed has no side effects; the concrete type is only chosen once
// the resource has returned an entity and the writers for its Go type
// are known.

import (
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restdata"
	"github.com/sirupsen/logrus"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// anyAccept is used in place of an unparseable Accept: header, so
// that the error can still be sent.
var anyAccept = mediatype.Accept{{MediaType: mediatype.WildcardType, Q: 1}}

// fallbackErrorType is the media type of an error response when
// nothing the client accepts can carry it.
var fallbackErrorType = mediatype.ApplicationJSON

type resourceHandler struct {
	server   *Server
	resource *resource
}

func (h *resourceHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	s := h.server
	start := s.Clock.Now()
	ctx := provider.NewContext(req.Context(), s.Providers)
	out := &lazyResponse{resp: resp, status: http.StatusOK}
	logger := s.Logger.WithFields(logrus.Fields{
		"method":   req.Method,
		"path":     req.URL.Path,
		"resource": h.resource.name,
	})

	// Start by parsing the Accept: header, even before trying to
	// parse the input.  This determines what format an error
	// message could be sent back as.
	acceptHeader := req.Header.Get("Accept")
	accept, err := mediatype.ParseAccept(acceptHeader)
	if err != nil {
		accept = anyAccept
		err = restdata.ErrBadRequest{Err: err}
	}

	// Recover from panics by sending an HTTP error, if it is not
	// already too late.
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.WithField("panic", recovered).Error("panic serving request")
			if !out.started {
				response := restdata.ErrorResponse{}
				response.FromPanic(recovered)
				h.respondSafely(ctx, logger, out, req, accept, &provider.Response{
					Status: http.StatusInternalServerError,
					Entity: response,
				})
			}
		}
		logger.WithFields(logrus.Fields{
			"status":   out.status,
			"bytes":    out.written,
			"duration": s.Clock.Now().Sub(start),
		}).Debug("served request")
	}()

	var result interface{}
	if err == nil {
		result, err = h.invoke(ctx, resp, req, accept, acceptHeader)
	}
	var response *provider.Response
	if err != nil {
		response = h.mapError(ctx, logger, err)
	} else {
		response = success(result)
	}
	h.respond(ctx, logger, out, req, accept, response)
}

// invoke checks the request against the resource and calls the
// resource method.
func (h *resourceHandler) invoke(ctx context.Context, resp http.ResponseWriter, req *http.Request, accept mediatype.Accept, acceptHeader string) (interface{}, error) {
	res := h.resource
	if !res.allows(req.Method) {
		resp.Header().Set("Allow", strings.Join(res.allowed(), ", "))
		return nil, restdata.ErrMethodNotAllowed{Method: req.Method, Allowed: res.allowed()}
	}
	if req.Method == http.MethodOptions {
		resp.Header().Set("Allow", strings.Join(res.allowed(), ", "))
		return nil, nil
	}
	if !acceptsAny(accept, res.declaredProduces()) {
		return nil, restdata.ErrNotAcceptable{Accept: acceptHeader}
	}

	var in interface{}
	var err error
	if req.Method == http.MethodPut || req.Method == http.MethodPost {
		in, err = h.readEntity(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	obj, err := res.factory.Instance(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req, h.server.Router, accept)
	notAllowed := restdata.ErrMethodNotAllowed{Method: req.Method, Allowed: res.allowed()}
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		if getter, ok := obj.(Getter); ok {
			return getter.Get(ctx, r)
		}
	case http.MethodPut:
		if putter, ok := obj.(Putter); ok {
			return putter.Put(ctx, r, in)
		}
	case http.MethodPost:
		if poster, ok := obj.(Poster); ok {
			return poster.Post(ctx, r, in)
		}
	case http.MethodDelete:
		if deleter, ok := obj.(Deleter); ok {
			return deleter.Delete(ctx, r)
		}
	}
	return nil, notAllowed
}

// acceptsAny returns true if some media type the client accepts could
// match some type the resource declares.
func acceptsAny(accept mediatype.Accept, declared []mediatype.MediaType) bool {
	for _, v := range accept {
		if v.Q == 0 {
			continue
		}
		for _, d := range declared {
			if mediatype.IsCompatible(v.MediaType, d) {
				return true
			}
		}
	}
	return false
}

// readEntity reads the request body as the resource's representation
// type.  A request with no body and no Content-Type: has a nil
// entity.
func (h *resourceHandler) readEntity(ctx context.Context, req *http.Request) (interface{}, error) {
	contentType := req.Header.Get("Content-Type")
	if contentType == "" && (req.Body == nil || req.Body == http.NoBody || req.ContentLength == 0) {
		return nil, nil
	}
	// RFC 7231 section 3.1.1.5
	mt := mediatype.OctetStream
	if contentType != "" {
		var err error
		mt, err = mediatype.Parse(contentType)
		if err != nil {
			return nil, restdata.ErrBadRequest{Err: err}
		}
	}
	res := h.resource
	if len(res.consumes) > 0 {
		ok := false
		for _, c := range res.consumes {
			if mediatype.MatchSpecificity(mt, c) != mediatype.Incompatible {
				ok = true
				break
			}
		}
		if !ok {
			return nil, restdata.ErrUnsupportedMediaType{Type: mt.WithoutParams().String()}
		}
	}
	return h.server.Providers.Read(ctx, res.entityType, mt, req.Header, req.Body)
}

// success converts a resource method result to a response.
func success(result interface{}) *provider.Response {
	switch r := result.(type) {
	case nil:
		return &provider.Response{Status: http.StatusNoContent}
	case *provider.Response:
		if r.Status == 0 {
			r.Status = http.StatusOK
		}
		return r
	case Created:
		header := http.Header{}
		if r.Location != "" {
			header.Set("Location", r.Location)
		}
		return &provider.Response{
			Status: http.StatusCreated,
			Header: header,
			Entity: r.Body,
		}
	}
	return &provider.Response{Status: http.StatusOK, Entity: result}
}

// mapError converts an error to a response through the exception
// mappers.  If there is no mapper, or it has nothing to say, the
// response is a restdata.ErrorResponse.
func (h *resourceHandler) mapError(ctx context.Context, logger logrus.FieldLogger, err error) *provider.Response {
	var response *provider.Response
	if mapper, ok := h.server.Providers.FindExceptionMapper(ctx, err); ok {
		response = mapper.ToResponse(err)
	}
	if response == nil {
		errorResponse := restdata.ErrorResponse{}
		errorResponse.FromError(err)
		response = &provider.Response{Entity: errorResponse}
	}
	if response.Status == 0 {
		response.Status = restdata.StatusOf(err)
	}
	entry := logger.WithError(err).WithField("status", response.Status)
	if response.Status >= 500 {
		entry.Warn("request failed")
	} else {
		entry.Debug("request failed")
	}
	return response
}

// negotiate picks the response media type for an entity of type t.
// If restrict is true, only types the resource declares are
// considered.
func (h *resourceHandler) negotiate(ctx context.Context, accept mediatype.Accept, t reflect.Type, restrict bool) (mediatype.MediaType, error) {
	declared := []mediatype.MediaType{mediatype.WildcardType}
	if restrict {
		declared = h.resource.declaredProduces()
	}
	var produced []mediatype.MediaType
	seen := make(map[string]bool)
	for _, w := range h.server.Providers.WriterMediaTypes(ctx, t) {
		for _, d := range declared {
			if mediatype.MatchSpecificity(d, w) == mediatype.Incompatible {
				continue
			}
			mt := mediatype.MostSpecific(d.WithoutParams(), w)
			if !seen[mt.String()] {
				seen[mt.String()] = true
				produced = append(produced, mt)
			}
		}
	}
	if len(produced) == 0 {
		return mediatype.MediaType{}, mediatype.ErrNotAcceptable{}
	}
	return mediatype.Negotiate(accept, produced)
}

// respond sends a response.  A successful response that cannot be
// written in any acceptable media type becomes a 406 error, and an
// error response that cannot be is sent as JSON anyway.
func (h *resourceHandler) respond(ctx context.Context, logger logrus.FieldLogger, out *lazyResponse, req *http.Request, accept mediatype.Accept, response *provider.Response) {
	isError := response.Status >= 400
	header := out.resp.Header()
	for k, vs := range response.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	out.status = response.Status
	if response.Entity == nil {
		header.Del("Content-Type")
		out.start()
		return
	}

	mt := response.MediaType
	if mt.IsZero() {
		var err error
		mt, err = h.negotiate(ctx, accept, reflect.TypeOf(response.Entity), !isError)
		if err != nil && !isError {
			header.Del("Location")
			h.respond(ctx, logger, out, req, accept, h.mapError(ctx, logger, restdata.ErrNotAcceptable{
				Accept: req.Header.Get("Accept"),
			}))
			return
		}
		if err != nil {
			mt = fallbackErrorType
		}
	}
	header.Set("Content-Type", mt.String())

	var w io.Writer = out
	if req.Method == http.MethodHead {
		w = discard{out}
	}
	err := h.server.Providers.Write(ctx, response.Entity, mt, header, w)
	switch {
	case err == nil:
		out.start()
	case out.started:
		// We have already sent a status line, so the best we
		// can do is complain
		logger.WithError(err).Warn("error writing response")
	case !isError:
		header.Del("Location")
		h.respond(ctx, logger, out, req, accept, h.mapError(ctx, logger, err))
	default:
		logger.WithError(err).Warn("error writing error response")
		header.Del("Content-Type")
		out.status = http.StatusInternalServerError
		out.start()
	}
}

// respondSafely is respond for use while recovering from a panic.  A
// second panic is logged and otherwise ignored.
func (h *resourceHandler) respondSafely(ctx context.Context, logger logrus.FieldLogger, out *lazyResponse, req *http.Request, accept mediatype.Accept, response *provider.Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.WithField("panic", recovered).Error("panic sending panic response")
		}
	}()
	h.respond(ctx, logger, out, req, accept, response)
}
