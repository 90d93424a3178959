// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver serves registered resources over HTTP, reading
// request entities and writing response entities through a
// provider.Registry.  The restclient package is a matching client.
//
// Resources
//
// A resource is any value implementing provider.Resource (a fixed
// path) or provider.DynamicResource, plus at least one of Getter,
// Putter, Poster, or Deleter.  Paths are gorilla/mux templates, so
// /note/{name} binds a route variable that Request.Var returns
// decoded with restdata.MaybeDecodeName.  A resource may also
// implement provider.Producer and provider.Consumer to restrict the
// media types it produces and accepts, Representer to set the Go type
// request bodies are read as, and Namer to name its route.
//
// Resources are registered in a ResourceRegistry, directly or through
// an application.Processor.  Routes are added in priority order the
// first time Server.Handler is called.
//
// HTTP Considerations
//
// The response media type is chosen from the intersection of the
// resource's declared types and the types the providers can write for
// the returned Go value, in the order of the client's Accept: header.
// If the client accepts nothing the resource declares, the resource is
// never called and the response is 406 Not Acceptable.  A request body
// whose Content-Type: the resource does not consume is 415
// Unsupported Media Type; a body with no Content-Type: is treated as
// application/octet-stream (RFC 7231 section 3.1.1.5).
//
// A nil result is 204 No Content, and a Created result is 201 Created
// with a Location: header.  HEAD requests are answered by the Getter
// without a body, and OPTIONS requests report the Allow: header.
//
// Errors
//
// An error returned from a resource is passed to the most specific
// registered provider.ExceptionMapper.  Without one, the response is
// a restdata.ErrorResponse with the status from restdata.StatusOf.
// Panics are recovered and reported as 500 Internal Server Error if
// nothing has been sent yet.
//
// Root Document
//
// Unless some resource serves it, the path / returns a
// restdata.RootData listing every resource with its URL template and
// methods.
package restserver
