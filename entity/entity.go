// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package entity provides the built-in entity providers: readers and
// writers for plain text, raw bytes, streams, HTML forms, multipart
// messages, and the JSON, CBOR, YAML, and XML encodings of arbitrary
// Go values, together with a catch-all exception mapper and the
// default codec settings.
//
// Register adds all of these to a registry at provider.SystemPriority,
// so that anything an application registers for the same type and
// media type is preferred.
package entity

import (
	"github.com/diffeo/go-wink/provider"
	"github.com/sirupsen/logrus"
	"io"
	"net/url"
	"reflect"
)

var (
	stringType = reflect.TypeOf("")
	bytesType  = reflect.TypeOf([]byte(nil))
	readerType = reflect.TypeOf((*io.Reader)(nil)).Elem()
	formType   = reflect.TypeOf(url.Values(nil))
)

// Providers returns new instances of every built-in provider, in the
// order Register adds them.
func Providers() []interface{} {
	return []interface{}{
		stringProvider{},
		bytesProvider{},
		readerProvider{},
		formProvider{},
		multipartReader{},
		multipartWriter{},
		jsonProvider{},
		cborProvider{},
		yamlProvider{},
		xmlProvider{},
		errorMapper{},
		jsonHandleResolver{handle: DefaultJSONHandle()},
		cborHandleResolver{handle: DefaultCBORHandle()},
	}
}

// Register adds the built-in providers to reg at system priority.
// It returns the number of providers actually added, which is less
// than the full set if some were already registered.
func Register(reg *provider.Registry) int {
	added := 0
	for _, p := range Providers() {
		if reg.Add(p, provider.SystemPriority) {
			added++
		}
	}
	reg.Logger.WithFields(logrus.Fields{
		"added": added,
		"total": reg.Len(),
	}).Debug("registered system providers")
	return added
}

// isRaw returns true for the types the dedicated text, bytes, stream,
// form, and multipart providers handle, which the structured codecs
// leave alone.
func isRaw(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t {
	case stringType, bytesType, formType, multipartInType, multipartOutType:
		return true
	}
	if t.Kind() == reflect.Interface {
		return t == readerType
	}
	return t.Implements(readerType)
}

// isEncodable returns true for types a structured codec could
// plausibly encode or decode.
func isEncodable(t reflect.Type) bool {
	if t == nil {
		return true
	}
	if isRaw(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	}
	return true
}

// newValue returns a pointer to a new zero value of type t, or to an
// empty interface{} if t is nil.
func newValue(t reflect.Type) reflect.Value {
	if t == nil {
		var v interface{}
		return reflect.ValueOf(&v)
	}
	return reflect.New(t)
}
