// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.  These are written and read
// through the provider registry like any other entity, so they may
// travel as JSON, CBOR, YAML, or XML, whichever the two sides
// negotiate.
//
// API Usage
//
// HTTP GET the root document at its specified URL.  This will return
// a serialization of the RootData object, which lists every resource
// the server hosts.  Resource URLs may be RFC 6570 URI templates,
// URL strings with a {parameter} in curly braces.  For instance, a
// JSON serialization of RootData might look like
//
//     {
//         "url": "/",
//         "resources": [
//             {"name": "echo", "url": "/echo", "methods": ["GET", "POST"]},
//             {"name": "note", "url": "/note/{name}", "methods": ["GET", "PUT", "DELETE"]}
//         ]
//     }
//
// While the URL structure is predictable and formulaic, it is not
// actually part of the API contract.  The only specific guarantee is
// that retrieving the root resource will return a serialization of
// RootData.
//
// Encoding Considerations
//
// A name that appears in a URL string must be made of ASCII
// characters that can be represented unescaped.  Other names are
// escaped by encoding their byte representations using the base64
// URL-safe encoding with no padding, and prepending a hyphen to the
// name.  Names that would be otherwise safe and begin with hyphens
// are also encoded.
//
// The URL path
//
//     /note/-LQ
//
// refers to the note named "-".
//
// HTTP Considerations
//
// Any resource that supports GET also supports HEAD, and every
// resource supports OPTIONS, returning its supported methods in an
// Allow: header.  A method the resource does not support returns
// 405 Method Not Allowed.
//
// The server picks the response media type from the request's
// Accept: header and the media types its writers can produce; if
// nothing matches it returns 406 Not Acceptable.  If no reader
// understands the request's Content-Type: it returns 415
// Unsupported Media Type.
//
// Errors
//
// Most errors should be returned as encodings of the ErrorResponse
// type.  This can round-trip the errors defined in this package but
// may return most other errors as plain strings that are not the
// same objects as other standard errors.
//
// If Go server code panics, this should be captured and returned as
// an ErrorResponse with error code "panic".
package restdata

// V1JSONMediaType is the preferred, most specific MIME type for the
// JSON representation of this content.
const V1JSONMediaType = "application/vnd.diffeo.wink.v1+json"

// JSONMediaType requests the most recent version of the JSON
// representation of this content.
const JSONMediaType = "application/vnd.diffeo.wink+json"

// Resource is a base type for all resources in this module.
type Resource struct {
	// URL points at this resource.
	URL string `json:"url" yaml:"url" xml:"url"`
}

// NamedResource is a resource with a name.
type NamedResource struct {
	Resource `yaml:",inline"`

	// Name holds the name of this resource.
	Name string `json:"name" yaml:"name" xml:"name"`
}

// ResourceShort describes one resource hosted by a server.
type ResourceShort struct {
	NamedResource `yaml:",inline"`

	// Methods lists the HTTP methods the resource supports, not
	// counting HEAD and OPTIONS.
	Methods []string `json:"methods" yaml:"methods" xml:"method"`
}

// RootData is returned by the root path.
type RootData struct {
	Resource `yaml:",inline"`

	// Resources lists every resource the server hosts, in the
	// order the router tries them.  Resource URLs may be URI
	// templates.
	Resources []ResourceShort `json:"resources" yaml:"resources" xml:"resource"`
}

// ErrorResponse can be a response to any method, generally accompanied
// by a failing HTTP status code.
type ErrorResponse struct {
	// Error is a short description of the failure.  This may be
	// the name of an error type from this package, the string
	// "panic", or the string "error" for some other kind of
	// error.
	Error string `json:"error" yaml:"error" xml:"error"`

	// Message is a human-readable description of the failure.
	Message string `json:"message" yaml:"message" xml:"message"`

	// Value is an extra parameter to the error if applicable.
	Value string `json:"value,omitempty" yaml:"value,omitempty" xml:"value,omitempty"`

	// Stack holds a formatted backtrace, if the method failed
	// due to a panic.
	Stack string `json:"stack,omitempty" yaml:"stack,omitempty" xml:"stack,omitempty"`
}
