// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package mediatype provides the MIME media type value used throughout
// go-wink, along with the compatibility and specificity rules used
// to pick providers and to negotiate response types.
//
// Media types compare by their type and subtype only; parameters are
// carried along but never take part in matching.  The ordering of
// specificity, from most to least specific, is
//
//     type/subtype  >  type/base (for type/x+base)  >  type/*  >  */*
//
// An absent media type (the zero MediaType) behaves exactly like */*.
package mediatype

import (
	"errors"
	"mime"
	"sort"
	"strings"
)

// Wildcard is the "*" used for either half of a media type.
const Wildcard = "*"

// ErrNoSubtype is returned from Parse when the media type has no
// "/subtype" part.
var ErrNoSubtype = errors.New("media type has no subtype")

// MediaType is a parsed MIME media type.
type MediaType struct {
	// Type is the top-level type, such as "text", always lower case.
	Type string

	// Subtype is the subtype, such as "plain", always lower case.
	Subtype string

	// Params holds any parameters, keyed by lower-case name.  This
	// may be nil.
	Params map[string]string
}

// Specificity levels returned by Specificity() and MatchSpecificity().
const (
	// Incompatible is returned from MatchSpecificity when the two
	// media types cannot match.
	Incompatible = -1

	// MatchWildcard is a match against */*.
	MatchWildcard = 0

	// MatchWildcardSubtype is a match against type/*.
	MatchWildcardSubtype = 1

	// MatchSuffix is a match of type/x+base against type/base.
	MatchSuffix = 2

	// MatchExact is an exact type/subtype match.
	MatchExact = 3
)

// Well-known media types.
var (
	WildcardType       = MediaType{Type: Wildcard, Subtype: Wildcard}
	TextPlain          = MediaType{Type: "text", Subtype: "plain"}
	TextXML            = MediaType{Type: "text", Subtype: "xml"}
	TextYAML           = MediaType{Type: "text", Subtype: "yaml"}
	TextJavascript     = MediaType{Type: "text", Subtype: "javascript"}
	TextEcmascript     = MediaType{Type: "text", Subtype: "ecmascript"}
	ApplicationJSON    = MediaType{Type: "application", Subtype: "json"}
	ApplicationXML     = MediaType{Type: "application", Subtype: "xml"}
	ApplicationYAML    = MediaType{Type: "application", Subtype: "x-yaml"}
	ApplicationCBOR    = MediaType{Type: "application", Subtype: "cbor"}
	OctetStream        = MediaType{Type: "application", Subtype: "octet-stream"}
	FormURLEncoded     = MediaType{Type: "application", Subtype: "x-www-form-urlencoded"}
	Javascript         = MediaType{Type: "application", Subtype: "javascript"}
	Ecmascript         = MediaType{Type: "application", Subtype: "ecmascript"}
	MultipartWildcard  = MediaType{Type: "multipart", Subtype: Wildcard}
	MultipartMixed     = MediaType{Type: "multipart", Subtype: "mixed"}
	MultipartFormData  = MediaType{Type: "multipart", Subtype: "form-data"}
	MultipartAlternate = MediaType{Type: "multipart", Subtype: "alternative"}
)

// JSONTypes lists the media types that carry JSON content without a
// +json suffix.
var JSONTypes = []MediaType{
	ApplicationJSON,
	Javascript,
	Ecmascript,
	TextJavascript,
	TextEcmascript,
}

// Parse parses a media type string such as "text/plain; charset=utf-8".
// A lone "*" is accepted as "*/*", as many HTTP clients send it.
func Parse(s string) (MediaType, error) {
	s = strings.TrimSpace(s)
	if s == Wildcard {
		return WildcardType, nil
	}
	full, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, err
	}
	slash := strings.IndexByte(full, '/')
	if slash < 0 {
		return MediaType{}, ErrNoSubtype
	}
	mt := MediaType{
		Type:    full[:slash],
		Subtype: full[slash+1:],
	}
	if len(params) > 0 {
		mt.Params = params
	}
	return mt, nil
}

// MustParse is like Parse, but panics if s is not a valid media type.
// It is intended for package-level tables of constant strings.
func MustParse(s string) MediaType {
	mt, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// ParseList parses each of a list of media type strings, returning
// the first error encountered.
func ParseList(ss []string) ([]MediaType, error) {
	result := make([]MediaType, 0, len(ss))
	for _, s := range ss {
		mt, err := Parse(s)
		if err != nil {
			return nil, err
		}
		result = append(result, mt)
	}
	return result, nil
}

// String renders the media type, including parameters, in a form
// suitable for a Content-Type: header.
func (mt MediaType) String() string {
	if mt.IsZero() {
		return WildcardType.String()
	}
	base := mt.Type + "/" + mt.Subtype
	if len(mt.Params) == 0 {
		return base
	}
	return mime.FormatMediaType(base, mt.Params)
}

// IsZero returns true if this is the absent media type.
func (mt MediaType) IsZero() bool {
	return mt.Type == "" && mt.Subtype == ""
}

// normalize replaces the absent media type with */*.
func (mt MediaType) normalize() MediaType {
	if mt.IsZero() {
		return WildcardType
	}
	return mt
}

// WithoutParams returns a copy of mt with no parameters.
func (mt MediaType) WithoutParams() MediaType {
	mt = mt.normalize()
	return MediaType{Type: mt.Type, Subtype: mt.Subtype}
}

// WithParam returns a copy of mt with one parameter set.
func (mt MediaType) WithParam(name, value string) MediaType {
	params := make(map[string]string, len(mt.Params)+1)
	for k, v := range mt.Params {
		params[k] = v
	}
	params[strings.ToLower(name)] = value
	mt.Params = params
	return mt
}

// Param returns a single parameter value, or an empty string.
func (mt MediaType) Param(name string) string {
	return mt.Params[strings.ToLower(name)]
}

// IsWildcardType returns true if the top-level type is "*".
func (mt MediaType) IsWildcardType() bool {
	return mt.normalize().Type == Wildcard
}

// IsWildcardSubtype returns true if the subtype is "*".
func (mt MediaType) IsWildcardSubtype() bool {
	return mt.normalize().Subtype == Wildcard
}

// IsWildcard returns true if either half of the media type is "*".
func (mt MediaType) IsWildcard() bool {
	return mt.IsWildcardType() || mt.IsWildcardSubtype()
}

// Suffix returns the structured syntax suffix of the subtype, such as
// "json" for "vnd.example+json", or an empty string.
func (mt MediaType) Suffix() string {
	plus := strings.LastIndexByte(mt.Subtype, '+')
	if plus < 0 || plus == len(mt.Subtype)-1 {
		return ""
	}
	return mt.Subtype[plus+1:]
}

// Specificity returns how specific a media type is by itself:
// MatchExact for type/subtype, MatchWildcardSubtype for type/*, and
// MatchWildcard for */*.
func (mt MediaType) Specificity() int {
	switch {
	case mt.IsWildcardType():
		return MatchWildcard
	case mt.IsWildcardSubtype():
		return MatchWildcardSubtype
	default:
		return MatchExact
	}
}

// EqualsIgnoreParams returns true if a and b have the same type and
// subtype.
func EqualsIgnoreParams(a, b MediaType) bool {
	a, b = a.normalize(), b.normalize()
	return a.Type == b.Type && a.Subtype == b.Subtype
}

// IsCompatible returns true if a and b could describe the same
// content, considering wildcards on either side.
func IsCompatible(a, b MediaType) bool {
	a, b = a.normalize(), b.normalize()
	if a.Type == Wildcard || b.Type == Wildcard {
		return true
	}
	if a.Type != b.Type {
		return false
	}
	return a.Subtype == Wildcard || b.Subtype == Wildcard || a.Subtype == b.Subtype
}

// IsCompatibleNonCommutative returns true if every media type
// matched by b is also matched by a.  "text/*" covers "text/plain",
// but "text/plain" does not cover "text/*".
func IsCompatibleNonCommutative(a, b MediaType) bool {
	a, b = a.normalize(), b.normalize()
	if a.Type == Wildcard {
		return true
	}
	if a.Type != b.Type {
		return false
	}
	return a.Subtype == Wildcard || a.Subtype == b.Subtype
}

// Compare orders media types by specificity: it returns a positive
// number if a is more specific than b, negative if less, and 0 if
// they are equally specific.  Subtypes are compared before types,
// so n/m > n/* > */*.
func Compare(a, b MediaType) int {
	a, b = a.normalize(), b.normalize()
	if c := comparePart(a.Subtype, b.Subtype); c != 0 {
		return c
	}
	return comparePart(a.Type, b.Type)
}

func comparePart(a, b string) int {
	switch {
	case a == Wildcard && b == Wildcard:
		return 0
	case a == Wildcard:
		return -1
	case b == Wildcard:
		return 1
	}
	return 0
}

// MatchSpecificity scores how well a declared media type (from a
// provider or resource) serves a requested one.  It returns
// Incompatible if it cannot serve it at all.
//
// For a concrete request, the score reflects the declared type: an
// exact match beats a structured syntax suffix match, which beats
// type/*, which beats */*.  For a wildcard request every compatible
// declared type matches, scored by the declared type's own
// specificity.
func MatchSpecificity(requested, declared MediaType) int {
	requested, declared = requested.normalize(), declared.normalize()
	if requested.IsWildcard() {
		if !IsCompatible(requested, declared) {
			return Incompatible
		}
		return declared.Specificity()
	}
	switch {
	case declared.Type == Wildcard:
		return MatchWildcard
	case declared.Type != requested.Type:
		return Incompatible
	case declared.Subtype == requested.Subtype:
		return MatchExact
	case declared.Subtype == Wildcard:
		return MatchWildcardSubtype
	case requested.Suffix() != "" && declared.Subtype == requested.Suffix():
		return MatchSuffix
	}
	return Incompatible
}

// MostSpecific returns whichever of a and b is more specific,
// preferring a on a tie.  It is used to settle on a concrete type
// once two media types are known to be compatible.
func MostSpecific(a, b MediaType) MediaType {
	if Compare(b, a) > 0 {
		return b
	}
	return a
}

// SortBySpecificity sorts media types most-specific first, keeping
// the original order among equals.
func SortBySpecificity(mts []MediaType) {
	sort.SliceStable(mts, func(i, j int) bool {
		return Compare(mts[i], mts[j]) > 0
	})
}

// IsJSONType returns true for application/json, the javascript
// types, and any +json structured syntax type.
func IsJSONType(mt MediaType) bool {
	for _, jt := range JSONTypes {
		if EqualsIgnoreParams(mt, jt) {
			return true
		}
	}
	return mt.Suffix() == "json"
}

// IsXMLType returns true for application/xml, text/xml, and any
// application/...+xml type.
func IsXMLType(mt MediaType) bool {
	return EqualsIgnoreParams(mt, ApplicationXML) ||
		EqualsIgnoreParams(mt, TextXML) ||
		(mt.Type == "application" && mt.Suffix() == "xml")
}
