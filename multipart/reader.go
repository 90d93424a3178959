// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package multipart

import (
	"bytes"
	"context"
	"errors"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"io"
	"io/ioutil"
	"net/http"
	"reflect"
)

// ErrNoRegistry is returned when reading or writing a part entity
// through a context that carries no provider registry.
var ErrNoRegistry = errors.New("multipart: no provider registry in context")

// defaultPartType is the content type of a part with no Content-Type
// header (RFC 2046 section 5.1).
var defaultPartType = mediatype.TextPlain

// Part is one part of an incoming multipart message.
type Part struct {
	Header Header
	Body   io.Reader
}

// ContentType returns the parsed Content-Type of the part, text/plain
// if it has none, or application/octet-stream if it is unparseable.
func (p *Part) ContentType() mediatype.MediaType {
	return partContentType(p.Header)
}

func partContentType(h Header) mediatype.MediaType {
	ct := h.Get("Content-Type")
	if ct == "" {
		return defaultPartType
	}
	mt, err := mediatype.Parse(ct)
	if err != nil {
		return mediatype.OctetStream
	}
	return mt
}

// Entity reads the part body as an object of type t, using the
// provider registry carried in ctx.
func (p *Part) Entity(ctx context.Context, t reflect.Type) (interface{}, error) {
	return readEntity(ctx, t, p.Header, p.Body)
}

func readEntity(ctx context.Context, t reflect.Type, h Header, body io.Reader) (interface{}, error) {
	reg, ok := provider.FromContext(ctx)
	if !ok {
		return nil, ErrNoRegistry
	}
	return reg.Read(ctx, t, partContentType(h), http.Header(h), body)
}

// Buffer reads the rest of the part body into memory, so that it
// remains usable after the message has moved on.
func (p *Part) Buffer() (*BufferedPart, error) {
	body, err := ioutil.ReadAll(p.Body)
	if err != nil {
		return nil, err
	}
	return &BufferedPart{Header: p.Header.Clone(), Body: body}, nil
}

// BufferedPart is a part of a multipart message held in memory.
type BufferedPart struct {
	Header Header
	Body   []byte
}

// ContentType returns the parsed Content-Type of the part.
func (b *BufferedPart) ContentType() mediatype.MediaType {
	return partContentType(b.Header)
}

// Reader returns a new reader over the part body.
func (b *BufferedPart) Reader() io.Reader {
	return bytes.NewReader(b.Body)
}

// Entity reads the part body as an object of type t, using the
// provider registry carried in ctx.
func (b *BufferedPart) Entity(ctx context.Context, t reflect.Type) (interface{}, error) {
	return readEntity(ctx, t, b.Header, b.Reader())
}

// Reader iterates over the parts of an incoming multipart message.
//
//     for reader.Next() {
//             part := reader.Part()
//             ...
//     }
//     if err := reader.Err(); err != nil {
//             ...
//     }
type Reader struct {
	// ContentType is the content type of the whole message,
	// including its boundary parameter.  It is informational.
	ContentType mediatype.MediaType

	parser *Parser
	part   *Part
	err    error
}

// NewReader creates a reader over a multipart message with the given
// boundary.
func NewReader(r io.Reader, boundary string) *Reader {
	return &Reader{
		ContentType: mediatype.MultipartMixed.WithParam("boundary", boundary),
		parser:      NewParser(r, boundary),
	}
}

// NewReaderForType creates a reader over a multipart message with the
// given content type, which must have a boundary parameter.
func NewReaderForType(r io.Reader, mt mediatype.MediaType) (*Reader, error) {
	boundary := mt.Param("boundary")
	if mt.Type != "multipart" || boundary == "" {
		return nil, ErrNoBoundary{MediaType: mt}
	}
	reader := NewReader(r, boundary)
	reader.ContentType = mt
	return reader, nil
}

// ErrNoBoundary is returned from NewReaderForType() if the content
// type is not multipart or has no boundary.
type ErrNoBoundary struct {
	MediaType mediatype.MediaType
}

func (e ErrNoBoundary) Error() string {
	return "multipart: no boundary in content type " + e.MediaType.String()
}

// HTTPStatus returns a fixed 400 Bad Request error code.
func (e ErrNoBoundary) HTTPStatus() int {
	return http.StatusBadRequest
}

// Next advances to the next part, returning false at the end of the
// message or on error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	ok, err := r.parser.NextPart()
	if err != nil {
		r.err = err
	}
	if !ok {
		r.part = nil
		return false
	}
	r.part = &Part{
		Header: r.parser.Headers(),
		Body:   r.parser.Body(),
	}
	return true
}

// Part returns the current part.  Its body is only readable until the
// next call to Next().
func (r *Reader) Part() *Part {
	return r.part
}

// Err returns the error, if any, that stopped iteration.
func (r *Reader) Err() error {
	return r.err
}

// ReadAll buffers every remaining part of the message.
func (r *Reader) ReadAll() ([]*BufferedPart, error) {
	var parts []*BufferedPart
	for r.Next() {
		part, err := r.Part().Buffer()
		if err != nil {
			return parts, err
		}
		parts = append(parts, part)
	}
	return parts, r.Err()
}
