// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package multipart

import (
	"net/textproto"
	"sort"
	"strings"
)

// Header is the header of one part of a multipart message.  Names
// are case-insensitive; each name may have several values.  Since
// names are stored in canonical form, a Header converts directly to
// an http.Header or a textproto.MIMEHeader.
type Header map[string][]string

// CanonicalKey returns the form in which a header name is stored.
// Names that textproto cannot canonicalize (for instance, ones
// containing spaces) are stored in lower case.
func CanonicalKey(key string) string {
	return textproto.CanonicalMIMEHeaderKey(strings.ToLower(key))
}

// Add adds a value to a header name, keeping any existing values.
func (h Header) Add(key, value string) {
	key = CanonicalKey(key)
	h[key] = append(h[key], value)
}

// Set replaces all values of a header name with a single value.
func (h Header) Set(key, value string) {
	h[CanonicalKey(key)] = []string{value}
}

// Get returns the first value of a header name, or an empty string.
func (h Header) Get(key string) string {
	values := h[CanonicalKey(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns all of the values of a header name.
func (h Header) Values(key string) []string {
	return h[CanonicalKey(key)]
}

// Del removes a header name.
func (h Header) Del(key string) {
	delete(h, CanonicalKey(key))
}

// Keys returns the header names in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the header.  A nil header clones to
// an empty one.
func (h Header) Clone() Header {
	result := make(Header, len(h))
	for key, values := range h {
		result[key] = append([]string(nil), values...)
	}
	return result
}
