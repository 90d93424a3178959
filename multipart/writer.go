// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package multipart

import (
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/satori/go.uuid"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"reflect"
)

// NewBoundary returns a new random boundary string.
func NewBoundary() string {
	return "wink-" + uuid.NewV4().String()
}

// Writer writes a multipart message.  Parts are separated with CRLF
// line breaks.
type Writer struct {
	w *multipart.Writer
}

// NewWriter creates a writer with a random boundary.
func NewWriter(w io.Writer) *Writer {
	mw := multipart.NewWriter(w)
	// A uuid-based boundary is always valid
	_ = mw.SetBoundary(NewBoundary())
	return &Writer{w: mw}
}

// SetBoundary replaces the boundary.  It must be called before any
// parts are created.
func (w *Writer) SetBoundary(boundary string) error {
	return w.w.SetBoundary(boundary)
}

// Boundary returns the writer's boundary.
func (w *Writer) Boundary() string {
	return w.w.Boundary()
}

// ContentType returns a multipart media type with the given subtype
// and this writer's boundary.
func (w *Writer) ContentType(subtype string) mediatype.MediaType {
	if subtype == "" {
		subtype = mediatype.MultipartMixed.Subtype
	}
	mt := mediatype.MediaType{Type: "multipart", Subtype: subtype}
	return mt.WithParam("boundary", w.Boundary())
}

// CreatePart starts a new part with the given header, returning a
// writer for its body.  The body writer is only valid until the next
// part is created or the message is closed.
func (w *Writer) CreatePart(h Header) (io.Writer, error) {
	if h == nil {
		h = Header{}
	}
	return w.w.CreatePart(textproto.MIMEHeader(h))
}

// Close writes the closing boundary.
func (w *Writer) Close() error {
	return w.w.Close()
}

// OutPart is one part of an outgoing multipart message.
type OutPart struct {
	// Header holds any extra part headers.
	Header Header

	// ContentType is the media type to write Entity as.  If it
	// is absent, the first concrete media type any writer
	// declares for the entity is used.
	ContentType mediatype.MediaType

	// Entity is the part body, written through the provider
	// registry.
	Entity interface{}
}

// OutMultiPart is an outgoing multipart message.  It is written by
// the multipart writer provider, with each part body in turn written
// through the provider registry.
type OutMultiPart struct {
	// Subtype is the multipart subtype; "mixed" if empty.
	Subtype string

	// Boundary is the message boundary.  If empty, a random
	// boundary is assigned when the content type is first needed.
	Boundary string

	Parts []OutPart
}

// AddPart appends a part to the message.
func (m *OutMultiPart) AddPart(part OutPart) {
	m.Parts = append(m.Parts, part)
}

// ContentType returns the media type of the message, including its
// boundary.
func (m *OutMultiPart) ContentType() mediatype.MediaType {
	if m.Boundary == "" {
		m.Boundary = NewBoundary()
	}
	subtype := m.Subtype
	if subtype == "" {
		subtype = mediatype.MultipartMixed.Subtype
	}
	mt := mediatype.MediaType{Type: "multipart", Subtype: subtype}
	return mt.WithParam("boundary", m.Boundary)
}

// lazyPart delays creating a part until its body is first written,
// so that the entity writer can still add headers.
type lazyPart struct {
	w      *Writer
	header Header
	body   io.Writer
}

func (l *lazyPart) Write(b []byte) (int, error) {
	if l.body == nil {
		body, err := l.w.CreatePart(l.header)
		if err != nil {
			return 0, err
		}
		l.body = body
	}
	return l.body.Write(b)
}

// Write writes the whole message to w.  The part entities are written
// through the provider registry carried by ctx.
func (m *OutMultiPart) Write(ctx context.Context, w io.Writer) error {
	reg, ok := provider.FromContext(ctx)
	if !ok {
		return ErrNoRegistry
	}
	mw := NewWriter(w)
	if err := mw.SetBoundary(m.ContentType().Param("boundary")); err != nil {
		return err
	}
	for _, part := range m.Parts {
		header := part.Header.Clone()
		mt := part.ContentType
		if mt.IsZero() {
			mt = defaultOutType(ctx, reg, reflect.TypeOf(part.Entity))
		}
		header.Set("Content-Type", mt.String())
		lp := &lazyPart{w: mw, header: header}
		if err := reg.Write(ctx, part.Entity, mt, http.Header(header), lp); err != nil {
			return err
		}
		if lp.body == nil {
			// Empty body; still write the part header
			if _, err := lp.Write(nil); err != nil {
				return err
			}
		}
	}
	return mw.Close()
}

// defaultOutType picks a content type for a part entity of type t.
func defaultOutType(ctx context.Context, reg *provider.Registry, t reflect.Type) mediatype.MediaType {
	for _, mt := range reg.WriterMediaTypes(ctx, t) {
		if !mt.IsWildcard() {
			return mt
		}
	}
	return mediatype.OctetStream
}
