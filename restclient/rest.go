// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

// This file provides generic REST client code.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restdata"
	"github.com/jtacoma/uritemplates"
	"github.com/sirupsen/logrus"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// Resource is any object that has a URL.
type Resource struct {
	URL    *url.URL
	Client *Client
}

// Template expands a URI template, encoding string values with
// restdata.MaybeEncodeName, and returns the result relative to the
// resource's URL.
func (r *Resource) Template(template string, vars map[string]interface{}) (*url.URL, error) {
	// Build the template object
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		return nil, err
	}

	// Encode all of the values if required
	encoded := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		switch vv := v.(type) {
		case string:
			encoded[k] = restdata.MaybeEncodeName(vv)
		case []string:
			tt := make([]string, len(vv))
			for i, s := range vv {
				tt[i] = restdata.MaybeEncodeName(s)
			}
			encoded[k] = tt
		default:
			encoded[k] = v
		}
	}

	// Expand the template to produce a string
	expanded, err := tmpl.Expand(encoded)
	if err != nil {
		return nil, err
	}

	// Return the parsed URL of the result, relative to ourselves
	return r.URL.Parse(expanded)
}

// At returns a new resource at the expansion of template.
func (r *Resource) At(template string, vars map[string]interface{}) (*Resource, error) {
	u, err := r.Template(template, vars)
	if err != nil {
		return nil, err
	}
	return &Resource{URL: u, Client: r.Client}, nil
}

// contentTyped is implemented by entities that know their own media
// type, such as outgoing multipart messages with their boundary.
type contentTyped interface {
	ContentType() mediatype.MediaType
}

// requestType picks the media type to send in as.
func (c *Client) requestType(ctx context.Context, in interface{}) mediatype.MediaType {
	if ct, ok := in.(contentTyped); ok {
		return ct.ContentType()
	}
	if !c.ContentType.IsZero() {
		return c.ContentType
	}
	for _, mt := range c.Providers.WriterMediaTypes(ctx, reflect.TypeOf(in)) {
		if !mt.IsWildcard() {
			return mt
		}
	}
	return mediatype.OctetStream
}

// acceptHeader builds an Accept: header for reading a response as
// type t.
func (c *Client) acceptHeader(ctx context.Context, t reflect.Type) string {
	if c.Accept != "" {
		return c.Accept
	}
	var types []string
	for _, mt := range c.Providers.ReaderMediaTypes(ctx, t) {
		types = append(types, mt.String())
	}
	return strings.Join(types, ", ")
}

// Do performs some HTTP action.  If in is non-nil, it is written
// through the client's providers and sent as the body of, for
// instance, a POST request.  If out is non-nil, the response body (if
// any) is read through the providers as the type out points to and
// stored there; out must be a non-nil pointer, and the body is closed
// before Do returns, so it may not be a streaming type.
func (r *Resource) Do(ctx context.Context, method string, url *url.URL, in, out interface{}) (err error) {
	c := r.Client
	ctx = provider.NewContext(ctx, c.Providers)

	var outValue reflect.Value
	if out != nil {
		outValue = reflect.ValueOf(out)
		if outValue.Kind() != reflect.Ptr || outValue.IsNil() {
			return ErrNotPointer{Type: outValue.Type()}
		}
	}

	// Set up the body as a pipe from the entity writer, if there
	// is one
	var body io.Reader
	var contentType mediatype.MediaType
	if in != nil {
		contentType = c.requestType(ctx, in)
		reader, writer := io.Pipe()
		finished := make(chan error, 1)
		go func() {
			err := c.Providers.Write(ctx, in, contentType, http.Header{}, writer)
			writer.CloseWithError(err)
			finished <- err
		}()
		defer func() {
			// Unblock the writer if the request never read
			// the whole body
			_ = reader.Close()
			if werr := <-finished; werr != io.ErrClosedPipe {
				err = firstError(err, werr)
			}
		}()
		body = reader
	}

	// Create the request and set headers
	req, err := http.NewRequestWithContext(ctx, method, url.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", contentType.String())
	}
	if out != nil {
		if accept := c.acceptHeader(ctx, outValue.Type().Elem()); accept != "" {
			req.Header.Set("Accept", accept)
		}
	}

	// Actually do the request
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	c.Logger.WithFields(logrus.Fields{
		"method": method,
		"url":    url.String(),
		"status": resp.StatusCode,
	}).Debug("REST request")

	// If the response included a body, clean up afterwards
	if resp.Body != nil {
		defer func() {
			err = firstError(err, resp.Body.Close())
		}()
	}

	// Check the response code
	if err = c.checkHTTPStatus(ctx, resp); err != nil {
		return err
	}

	// If there is both a body and a requested output,
	// decode it
	if resp.Body != nil && out != nil && hasBody(resp) {
		err = c.decode(ctx, resp, outValue)
	}

	return err // may be nil
}

// hasBody returns false for responses that are known to be empty.
func hasBody(resp *http.Response) bool {
	return resp.StatusCode != http.StatusNoContent && resp.ContentLength != 0
}

func (c *Client) decode(ctx context.Context, resp *http.Response, outValue reflect.Value) error {
	mt, err := responseType(resp)
	if err != nil {
		return err
	}
	t := outValue.Type().Elem()
	v, err := c.Providers.Read(ctx, t, mt, resp.Header, resp.Body)
	if err != nil {
		return err
	}
	if v == nil {
		outValue.Elem().Set(reflect.Zero(t))
		return nil
	}
	value := reflect.ValueOf(v)
	if !value.Type().AssignableTo(t) {
		return fmt.Errorf("read %v, wanted %v", value.Type(), t)
	}
	outValue.Elem().Set(value)
	return nil
}

// responseType returns the media type of a response body.
func responseType(resp *http.Response) (mediatype.MediaType, error) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return mediatype.OctetStream, nil
	}
	return mediatype.Parse(contentType)
}

// Get retrieves the resource from its own URL.  The result is stored
// in out, which must be of pointer type.
func (r *Resource) Get(ctx context.Context, out interface{}) error {
	return r.Do(ctx, http.MethodGet, r.URL, nil, out)
}

// GetFrom retrieves a resource from some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.  The result is stored in
// out, which must be of pointer type.
func (r *Resource) GetFrom(ctx context.Context, template string, vars map[string]interface{}, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do(ctx, http.MethodGet, url, nil, out)
	}
	return err
}

// Put updates the resource at its own URL.  The server response is
// stored in out, which must be of pointer type.
func (r *Resource) Put(ctx context.Context, in, out interface{}) error {
	return r.Do(ctx, http.MethodPut, r.URL, in, out)
}

// PutTo updates a resource at some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.  The server response is
// stored in out, which must be of pointer type.
func (r *Resource) PutTo(ctx context.Context, template string, vars map[string]interface{}, in, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do(ctx, http.MethodPut, url, in, out)
	}
	return err
}

// Post submits data to the resource at its own URL.
func (r *Resource) Post(ctx context.Context, in, out interface{}) error {
	return r.Do(ctx, http.MethodPost, r.URL, in, out)
}

// PostTo submits data to a service at some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.  The server response is
// stored in out, which must be of pointer type.
func (r *Resource) PostTo(ctx context.Context, template string, vars map[string]interface{}, in, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do(ctx, http.MethodPost, url, in, out)
	}
	return err
}

// Delete deletes the resource at its own URL.
func (r *Resource) Delete(ctx context.Context) error {
	return r.Do(ctx, http.MethodDelete, r.URL, nil, nil)
}

// DeleteAt deletes the resource at some other URL.  template is
// interpreted as a URI template, modified by vars, and the result
// taken relative to the resource's URL.  The server response is
// stored in out, which must be of pointer type.
func (r *Resource) DeleteAt(ctx context.Context, template string, vars map[string]interface{}, out interface{}) error {
	url, err := r.Template(template, vars)
	if err == nil {
		err = r.Do(ctx, http.MethodDelete, url, nil, out)
	}
	return err
}

// ErrorHTTP is a catch-all error for non-successes returned from the
// REST endpoint.
type ErrorHTTP struct {
	// Response holds a pointer to the failing HTTP response.
	Response *http.Response

	// Body holds the contents of the message body, presumed to
	// be text.
	Body string
}

func (e ErrorHTTP) Error() string {
	return e.Response.Status
}

// HTTPStatus returns the status code of the failing response.
func (e ErrorHTTP) HTTPStatus() int {
	return e.Response.StatusCode
}

// ErrNotPointer is returned from Resource.Do() if the output object
// is not a non-nil pointer.
type ErrNotPointer struct {
	Type reflect.Type
}

func (e ErrNotPointer) Error() string {
	return fmt.Sprintf("cannot read a response into %v", e.Type)
}

var errorResponseType = reflect.TypeOf(restdata.ErrorResponse{})

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.
func (c *Client) checkHTTPStatus(ctx context.Context, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	var body []byte
	var err error
	if resp.Body != nil {
		body, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
	}

	// Take a shot at decoding it as a better error
	if mt, err := responseType(resp); err == nil {
		obj, err := c.Providers.Read(ctx, errorResponseType, mt, resp.Header, bytes.NewReader(body))
		if errResp, ok := obj.(restdata.ErrorResponse); err == nil && ok && errResp.Error != "" {
			// Given that we decoded that successfully, return
			// the server-provided error
			return errResp.ToError()
		}
	}

	return ErrorHTTP{Response: resp, Body: string(body)}
}

// IsNotFound returns true if err is a 404 Not Found error from the
// server, in either of the forms Do() returns.
func IsNotFound(err error) bool {
	var notFound restdata.ErrNotFound
	if errors.As(err, &notFound) {
		return true
	}
	var httpErr ErrorHTTP
	return errors.As(err, &httpErr) && httpErr.Response.StatusCode == http.StatusNotFound
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
