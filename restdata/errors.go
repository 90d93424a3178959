// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// StatusOf returns the HTTP status code for err: that of the first
// error in its chain that implements ErrorStatus, or 500 Internal
// Server Error.
func StatusOf(err error) int {
	var es ErrorStatus
	if errors.As(err, &es) {
		return es.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// ErrUnsupportedMediaType is returned if the provided Content-Type:
// is unrecognized.  This translates directly into the equivalent HTTP
// 415 error.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// HTTPStatus returns a fixed 415 Unsupported Media Type error code.
func (e ErrUnsupportedMediaType) HTTPStatus() int {
	return http.StatusUnsupportedMediaType
}

// ErrNotAcceptable is returned if nothing the server can produce
// matches the request's Accept: header.
type ErrNotAcceptable struct {
	Accept string
}

func (e ErrNotAcceptable) Error() string {
	return fmt.Sprintf("Cannot produce any of %q", e.Accept)
}

// HTTPStatus returns a fixed 406 Not Acceptable error code.
func (e ErrNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// ErrMethodNotAllowed is returned if a resource does not support the
// request method.
type ErrMethodNotAllowed struct {
	Method  string
	Allowed []string
}

func (e ErrMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %s not allowed (allowed: %s)",
		e.Method, strings.Join(e.Allowed, ", "))
}

// HTTPStatus returns a fixed 405 Method Not Allowed error code.
func (e ErrMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// Unwrap returns the embedded error.
func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request body.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// Unwrap returns the embedded error.
func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the errors in this package to
// specific e.Error codes, and anything else to "error".
func (e *ErrorResponse) FromError(err error) {
	e.Error = "error"
	e.Message = err.Error()
	switch et := err.(type) {
	case ErrUnsupportedMediaType:
		e.Error = "ErrUnsupportedMediaType"
		e.Value = et.Type
	case ErrNotAcceptable:
		e.Error = "ErrNotAcceptable"
		e.Value = et.Accept
	case ErrMethodNotAllowed:
		e.Error = "ErrMethodNotAllowed"
		e.Value = et.Method
	case ErrNotFound:
		e.Error = "ErrNotFound"
	case ErrBadRequest:
		e.Error = "ErrBadRequest"
	}
}

// ToError converts e back to an error from this package, if that is
// possible.  If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	switch e.Error {
	case "ErrUnsupportedMediaType":
		return ErrUnsupportedMediaType{Type: e.Value}
	case "ErrNotAcceptable":
		return ErrNotAcceptable{Accept: e.Value}
	case "ErrMethodNotAllowed":
		return ErrMethodNotAllowed{Method: e.Value}
	case "ErrNotFound":
		return ErrNotFound{Err: errors.New(e.Message)}
	case "ErrBadRequest":
		return ErrBadRequest{Err: errors.New(e.Message)}
	default:
		return errors.New(e.Message)
	}
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//     defer func() {
//         if obj := recovered(); obj != nil {
//             resp := restdata.ErrorResponse{}
//             resp.FromPanic(obj)
//             // write resp out as makes sense
//         }
//    }
func (e *ErrorResponse) FromPanic(obj interface{}) {
	e.Error = "panic"
	if recoveredError, isError := obj.(error); isError {
		e.Message = recoveredError.Error()
	} else {
		e.Message = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	len := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:len])
}
