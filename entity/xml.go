// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package entity

import (
	"context"
	"encoding/xml"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/restdata"
	"io"
	"net/http"
	"reflect"
)

// xmlProvider reads and writes structures as XML, using
// encoding/xml's struct tags.  Maps and untyped values have no XML
// form, so it declines them.
type xmlProvider struct{}

func (xmlProvider) Consumes() []string { return []string{"application/xml", "text/xml"} }
func (xmlProvider) Produces() []string { return []string{"application/xml", "text/xml"} }

// xmlable returns true for structures and pointers to them.
func xmlable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func (xmlProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return xmlable(t)
}

func (xmlProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	v := reflect.New(t)
	if err := xml.NewDecoder(r).Decode(v.Interface()); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	return v.Elem().Interface(), nil
}

func (xmlProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return xmlable(t)
}

func (xmlProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(v)
}
