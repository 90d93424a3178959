// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package entity

import (
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restdata"
	"github.com/satori/go.uuid"
	"github.com/ugorji/go/codec"
	"io"
	"net/http"
	"reflect"
)

var (
	jsonHandleType = reflect.TypeOf((*codec.JsonHandle)(nil))
	cborHandleType = reflect.TypeOf((*codec.CborHandle)(nil))
	mapType        = reflect.TypeOf(map[string]interface{}(nil))
)

// uuidTag is the CBOR tag for a binary UUID.
const uuidTag = 37

// DefaultJSONHandle returns the JSON settings the built-in JSON
// provider uses when no context resolver supplies others.  Objects
// decode as map[string]interface{} and map keys are written in
// sorted order.
func DefaultJSONHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = mapType
	h.Canonical = true
	return h
}

// DefaultCBORHandle returns the CBOR settings the built-in CBOR
// provider uses when no context resolver supplies others.  In
// addition to the JSON settings, UUIDs travel as tag 37 byte
// strings.
func DefaultCBORHandle() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.MapType = mapType
	h.Canonical = true
	// The extension is well-formed, so this cannot fail
	_ = h.SetExt(reflect.TypeOf(uuid.UUID{}), uuidTag, uuidExt{})
	return h
}

// uuidExt is a codec extension plugin to encode and decode UUID
// objects as their 16 raw bytes.
type uuidExt struct{}

func (x uuidExt) WriteExt(v interface{}) []byte {
	return x.ConvertExt(v).([]byte)
}

func (x uuidExt) ReadExt(v interface{}, data []byte) {
	x.UpdateExt(v, data)
}

func (x uuidExt) ConvertExt(v interface{}) interface{} {
	if u, ok := v.(*uuid.UUID); ok {
		return u.Bytes()
	}
	return v.(uuid.UUID).Bytes()
}

func (x uuidExt) UpdateExt(dest interface{}, v interface{}) {
	bytes := v.([]byte)
	if len(bytes) != uuid.Size {
		panic("encoded UUID must have 16 bytes")
	}
	uuidp := dest.(*uuid.UUID)
	*uuidp = uuid.UUID{}
	copy(uuidp[:], bytes)
}

// jsonHandleResolver supplies the default JSON handle.
type jsonHandleResolver struct {
	handle *codec.JsonHandle
}

func (jsonHandleResolver) ContextType() reflect.Type { return jsonHandleType }

func (r jsonHandleResolver) Context(t reflect.Type) interface{} {
	return r.handle
}

// cborHandleResolver supplies the default CBOR handle.
type cborHandleResolver struct {
	handle *codec.CborHandle
}

func (cborHandleResolver) ContextType() reflect.Type { return cborHandleType }

func (r cborHandleResolver) Context(t reflect.Type) interface{} {
	return r.handle
}

var (
	fallbackJSON = DefaultJSONHandle()
	fallbackCBOR = DefaultCBORHandle()
)

// resolveHandle asks the registry in ctx, if any, for a codec handle
// of type t.
func resolveHandle(ctx context.Context, t reflect.Type, mt mediatype.MediaType) interface{} {
	reg, ok := provider.FromContext(ctx)
	if !ok {
		return nil
	}
	return reg.ResolveContext(ctx, t, mt)
}

func jsonHandle(ctx context.Context, mt mediatype.MediaType) *codec.JsonHandle {
	if h, ok := resolveHandle(ctx, jsonHandleType, mt).(*codec.JsonHandle); ok && h != nil {
		return h
	}
	return fallbackJSON
}

func cborHandle(ctx context.Context, mt mediatype.MediaType) *codec.CborHandle {
	if h, ok := resolveHandle(ctx, cborHandleType, mt).(*codec.CborHandle); ok && h != nil {
		return h
	}
	return fallbackCBOR
}

// decode reads one value of type t from r.
func decode(r io.Reader, h codec.Handle, t reflect.Type) (interface{}, error) {
	v := newValue(t)
	if err := codec.NewDecoder(r, h).Decode(v.Interface()); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	return v.Elem().Interface(), nil
}

// jsonProvider reads and writes any Go value as JSON.  It also
// serves any +json media type.
type jsonProvider struct{}

func (jsonProvider) Consumes() []string {
	return []string{
		"application/json",
		"application/javascript",
		"application/ecmascript",
		"text/javascript",
		"text/ecmascript",
	}
}

func (p jsonProvider) Produces() []string {
	return p.Consumes()
}

func (jsonProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return isEncodable(t)
}

func (jsonProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	return decode(r, jsonHandle(ctx, mt), t)
}

func (jsonProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return isEncodable(t)
}

func (jsonProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	return codec.NewEncoder(w, jsonHandle(ctx, mt)).Encode(v)
}

// cborProvider reads and writes any Go value as CBOR (RFC 7049).
type cborProvider struct{}

func (cborProvider) Consumes() []string { return []string{"application/cbor"} }
func (cborProvider) Produces() []string { return []string{"application/cbor"} }

func (cborProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return isEncodable(t)
}

func (cborProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	return decode(r, cborHandle(ctx, mt), t)
}

func (cborProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return isEncodable(t)
}

func (cborProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	return codec.NewEncoder(w, cborHandle(ctx, mt)).Encode(v)
}
