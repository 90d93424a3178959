// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package entity

import (
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"io"
	"io/ioutil"
	"net/http"
	"reflect"
)

// stringProvider reads and writes Go strings as the raw body.
type stringProvider struct{}

func (stringProvider) EntityType() reflect.Type { return stringType }
func (stringProvider) Consumes() []string      { return []string{"text/plain", "*/*"} }
func (stringProvider) Produces() []string      { return []string{"text/plain", "*/*"} }

func (stringProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == stringType
}

func (stringProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (stringProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == stringType
}

func (stringProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	_, err := io.WriteString(w, v.(string))
	return err
}

// bytesProvider reads and writes byte slices as the raw body.
type bytesProvider struct{}

func (bytesProvider) EntityType() reflect.Type { return bytesType }
func (bytesProvider) Consumes() []string      { return []string{"application/octet-stream", "*/*"} }
func (bytesProvider) Produces() []string      { return []string{"application/octet-stream", "*/*"} }

func (bytesProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == bytesType
}

func (bytesProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	return ioutil.ReadAll(r)
}

func (bytesProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == bytesType
}

func (bytesProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	_, err := w.Write(v.([]byte))
	return err
}

// readerProvider hands the body stream itself to the caller, and
// copies any io.Reader out as a body.  A reader that is also an
// io.Closer is closed once it has been copied.
type readerProvider struct{}

func (readerProvider) EntityType() reflect.Type { return readerType }
func (readerProvider) Consumes() []string      { return []string{"application/octet-stream", "*/*"} }
func (readerProvider) Produces() []string      { return []string{"application/octet-stream", "*/*"} }

func (readerProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == readerType
}

func (readerProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	return r, nil
}

func (readerProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return t != nil && t.Implements(readerType)
}

func (readerProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	r := v.(io.Reader)
	_, err := io.Copy(w, r)
	if closer, ok := r.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
