// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package entity

import (
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/multipart"
	"github.com/diffeo/go-wink/restdata"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"reflect"
)

var (
	multipartInType  = reflect.TypeOf((*multipart.Reader)(nil))
	multipartOutType = reflect.TypeOf((*multipart.OutMultiPart)(nil))
)

// formProvider reads and writes url.Values as HTML form data.
type formProvider struct{}

func (formProvider) EntityType() reflect.Type { return formType }
func (formProvider) Consumes() []string      { return []string{"application/x-www-form-urlencoded"} }
func (formProvider) Produces() []string      { return []string{"application/x-www-form-urlencoded"} }

func (formProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == formType
}

func (formProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	values, err := url.ParseQuery(string(b))
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	return values, nil
}

func (formProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == formType
}

func (formProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	_, err := io.WriteString(w, v.(url.Values).Encode())
	return err
}

// multipartSubtypes are the concrete multipart types offered when
// negotiating a response.  Any other multipart subtype is still
// accepted when it is asked for by name.
var multipartSubtypes = []string{
	"multipart/mixed",
	"multipart/form-data",
	"multipart/alternative",
	"multipart/*",
}

// multipartReader exposes a multipart body as a streaming
// *multipart.Reader.  The caller must consume the parts before the
// request completes.
type multipartReader struct{}

func (multipartReader) EntityType() reflect.Type { return multipartInType }
func (multipartReader) Consumes() []string      { return []string{"multipart/*"} }

func (multipartReader) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == multipartInType && mt.Param("boundary") != ""
}

func (multipartReader) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	reader, err := multipart.NewReaderForType(r, mt)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

// multipartWriter writes a *multipart.OutMultiPart, with each part
// written through the registry in the context.
type multipartWriter struct{}

func (multipartWriter) EntityType() reflect.Type { return multipartOutType }
func (multipartWriter) Produces() []string      { return multipartSubtypes }

func (multipartWriter) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == multipartOutType
}

// WriteTo fills in the message's subtype and boundary from mt where
// they are missing, and sets the resulting Content-Type in header.
func (multipartWriter) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	m := v.(*multipart.OutMultiPart)
	if m.Subtype == "" && !mt.IsWildcardSubtype() {
		m.Subtype = mt.Subtype
	}
	if m.Boundary == "" {
		m.Boundary = mt.Param("boundary")
	}
	header.Set("Content-Type", m.ContentType().String())
	return m.Write(ctx, w)
}
