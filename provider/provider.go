// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package provider holds the registry of entity providers: message
// body readers and writers, context resolvers, and exception mappers.
// Given a Go type, a media type, and sometimes an error, the registry
// picks the single most appropriate provider.
//
// A provider is any value implementing at least one of the Reader,
// Writer, ContextResolver, or ExceptionMapper interfaces.  It can
// narrow what it applies to by also implementing the optional
// Producer, Consumer, EntityTyped, ContextTyped, and ErrorTyped
// interfaces.  A provider that declares nothing applies to every type
// and every media type.
//
// Selection prefers the most specific media type match first, then
// the lowest priority value, then the earliest registration.  See
// mediatype.MatchSpecificity for what "most specific" means.
package provider

import (
	"context"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// Priorities for providers.  Lower values are selected first.
const (
	// DefaultPriority is the priority of application providers.
	DefaultPriority = 0.5

	// SystemPriority is the priority of the built-in providers,
	// so that anything an application registers is preferred.
	SystemPriority = 1.0
)

// Reader converts a request (or response) body into a Go object.
type Reader interface {
	// IsReadable returns true if this reader can produce an
	// object of type t from content of media type mt.
	IsReadable(t reflect.Type, mt mediatype.MediaType) bool

	// ReadFrom reads a body and returns an object assignable
	// to t.
	ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error)
}

// Writer converts a Go object into a response (or request) body.
type Writer interface {
	// IsWriteable returns true if this writer can produce
	// content of media type mt from an object of type t.
	IsWriteable(t reflect.Type, mt mediatype.MediaType) bool

	// WriteTo writes v to w.  It may add headers to header
	// before writing anything to w.
	WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error
}

// ContextResolver supplies shared configuration objects, such as an
// encoder handle, to other providers.
type ContextResolver interface {
	// Context returns an object of type t, or nil if this
	// resolver has nothing to offer for t.
	Context(t reflect.Type) interface{}
}

// ExceptionMapper converts an error into an HTTP response.
type ExceptionMapper interface {
	ToResponse(err error) *Response
}

// Response is the result of mapping an error.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Header holds additional headers; it may be nil.
	Header http.Header

	// Entity is the response body, which will be written through
	// a Writer.  It may be nil.
	Entity interface{}

	// MediaType, if set, forces the response content type.
	MediaType mediatype.MediaType
}

// Producer is implemented by providers that only write specific
// media types, and by resources that only produce them.
type Producer interface {
	Produces() []string
}

// Consumer is implemented by providers that only read specific media
// types, and by resources that only accept them.
type Consumer interface {
	Consumes() []string
}

// EntityTyped is implemented by readers and writers that only handle
// one Go type (or an interface type and its implementations).
type EntityTyped interface {
	EntityType() reflect.Type
}

// ContextTyped is implemented by context resolvers that only resolve
// one type.
type ContextTyped interface {
	ContextType() reflect.Type
}

// ErrorTyped is implemented by exception mappers that only map one
// kind of error.  The type may be a concrete error type or an
// interface.
type ErrorTyped interface {
	ErrorType() reflect.Type
}

// Kind is a bit mask of provider capabilities.
type Kind uint

// Provider capabilities.
const (
	KindReader Kind = 1 << iota
	KindWriter
	KindContextResolver
	KindExceptionMapper
)

var kindNames = []struct {
	Kind Kind
	Name string
}{
	{KindReader, "reader"},
	{KindWriter, "writer"},
	{KindContextResolver, "context_resolver"},
	{KindExceptionMapper, "exception_mapper"},
}

func (k Kind) String() string {
	var names []string
	for _, kn := range kindNames {
		if k&kn.Kind != 0 {
			names = append(names, kn.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Kind(%d)", uint(k))
	}
	return strings.Join(names, "|")
}

var (
	readerType          = reflect.TypeOf((*Reader)(nil)).Elem()
	writerType          = reflect.TypeOf((*Writer)(nil)).Elem()
	contextResolverType = reflect.TypeOf((*ContextResolver)(nil)).Elem()
	exceptionMapperType = reflect.TypeOf((*ExceptionMapper)(nil)).Elem()
	errorType           = reflect.TypeOf((*error)(nil)).Elem()
)

// KindsOf returns the capabilities a Go type has.
func KindsOf(t reflect.Type) Kind {
	var kinds Kind
	if t == nil {
		return kinds
	}
	if t.Implements(readerType) {
		kinds |= KindReader
	}
	if t.Implements(writerType) {
		kinds |= KindWriter
	}
	if t.Implements(contextResolverType) {
		kinds |= KindContextResolver
	}
	if t.Implements(exceptionMapperType) {
		kinds |= KindExceptionMapper
	}
	return kinds
}
