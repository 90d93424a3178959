// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package entity

import (
	"context"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/restdata"
	"gopkg.in/yaml.v2"
	"io"
	"net/http"
	"reflect"
)

// yamlProvider reads and writes any Go value as YAML.  Mappings read
// into an untyped value come back as map[string]interface{}, the same
// as from the JSON and CBOR providers, so that they can be written
// back out in any format.
type yamlProvider struct{}

func (yamlProvider) Consumes() []string {
	return []string{"application/x-yaml", "application/yaml", "text/yaml", "text/x-yaml"}
}

func (p yamlProvider) Produces() []string {
	return p.Consumes()
}

func (yamlProvider) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return isEncodable(t)
}

func (yamlProvider) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	v := newValue(t)
	if err := yaml.NewDecoder(r).Decode(v.Interface()); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	return StringKeyed(v.Elem().Interface()), nil
}

func (yamlProvider) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return isEncodable(t)
}

func (yamlProvider) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// StringKeyed converts the map[interface{}]interface{} values YAML
// produces for mappings, at any depth, into map[string]interface{}.
// Non-string keys are formatted with fmt.  Any other value, including
// typed structures, is returned as is.
func StringKeyed(obj interface{}) interface{} {
	switch v := obj.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			keyAsString, ok := key.(string)
			if !ok {
				keyAsString = fmt.Sprint(key)
			}
			result[keyAsString] = StringKeyed(value)
		}
		return result
	case map[string]interface{}:
		for key, value := range v {
			v[key] = StringKeyed(value)
		}
		return v
	case []interface{}:
		for i, value := range v {
			v[i] = StringKeyed(value)
		}
		return v
	}
	return obj
}
