// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mediatype

// This file deals with the HTTP Accept: header and picking a response
// type from it, following RFC 7231 section 5.3.

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ErrBadAccept is returned from ParseAccept() if the Accept: header is
// malformed (and no more specific error applies).
var ErrBadAccept = errors.New("Invalid Accept: header")

// ErrNotAcceptable is returned from Negotiate() if the Accept: header
// does not mention any media type that can actually be produced.
type ErrNotAcceptable struct{}

func (e ErrNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

// HTTPStatus returns a fixed 406 Not Acceptable error code.
func (e ErrNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// Valued is a single media range from an Accept: header with its
// quality value.
type Valued struct {
	MediaType MediaType
	Q         float64
}

// Accept is a parsed Accept: header, in header order.
type Accept []Valued

// ParseAccept parses an Accept: header value.  An empty header is
// equivalent to "*/*".  Quality values are truncated to three
// decimal places and must be between 0 and 1.
func ParseAccept(header string) (Accept, error) {
	if strings.TrimSpace(header) == "" {
		return Accept{{MediaType: WildcardType, Q: 1.0}}, nil
	}
	var accept Accept
	for _, mediaRange := range strings.Split(header, ",") {
		mediaRange = strings.TrimSpace(mediaRange)
		if mediaRange == "" {
			continue
		}
		mt, err := Parse(mediaRange)
		if err != nil {
			return nil, err
		}

		// What is the "q" ("quality") parameter for this type?
		q := 1.0
		if qStr, haveQ := mt.Params["q"]; haveQ {
			q, err = strconv.ParseFloat(qStr, 64)
			if err != nil {
				return nil, err
			}
			if q < 0.0 || q > 1.0 {
				return nil, ErrBadAccept
			}
			q = float64(int(q*1000)) / 1000
			delete(mt.Params, "q")
			if len(mt.Params) == 0 {
				mt.Params = nil
			}
		}
		accept = append(accept, Valued{MediaType: mt, Q: q})
	}
	if len(accept) == 0 {
		return nil, ErrBadAccept
	}
	return accept, nil
}

// Sorted returns a copy of the header's media ranges, most preferred
// first: by descending quality, then by descending specificity, then
// in header order.
func (a Accept) Sorted() Accept {
	sorted := make(Accept, len(a))
	copy(sorted, a)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Q != sorted[j].Q {
			return sorted[i].Q > sorted[j].Q
		}
		return Compare(sorted[i].MediaType, sorted[j].MediaType) > 0
	})
	return sorted
}

// MediaTypes returns the sorted media types without their quality
// values, omitting any that were explicitly refused with q=0.
func (a Accept) MediaTypes() []MediaType {
	var result []MediaType
	for _, v := range a.Sorted() {
		if v.Q > 0 {
			result = append(result, v.MediaType)
		}
	}
	return result
}

// IsAcceptable returns true if some media range in the header is
// compatible with mt and none of the compatible ranges refuses it
// with q=0.
func (a Accept) IsAcceptable(mt MediaType) bool {
	acceptable := false
	for _, v := range a {
		if IsCompatible(v.MediaType, mt) {
			if v.Q == 0 {
				return false
			}
			acceptable = true
		}
	}
	return acceptable
}

// Negotiate picks a response media type.  produced lists the media
// types the server could send, in its own order of preference.  The
// client's preference order wins; within one media range the first
// compatible produced type wins, and the more specific of the two is
// used.  A result of */* or application/* is resolved to
// application/octet-stream; any other wildcard result cannot be sent.
func Negotiate(accept Accept, produced []MediaType) (MediaType, error) {
	candidates := Candidates(accept, produced)
	if len(candidates) == 0 {
		return MediaType{}, ErrNotAcceptable{}
	}
	return candidates[0], nil
}

// Candidates returns every media type Negotiate() would consider, in
// order of preference, so that a caller can skip ones it turns out to
// be unable to write.  Wildcards are already resolved.
func Candidates(accept Accept, produced []MediaType) []MediaType {
	if len(produced) == 0 {
		produced = []MediaType{WildcardType}
	}
	var result []MediaType
	seen := make(map[string]bool)
	for _, v := range accept.Sorted() {
		if v.Q == 0 {
			continue
		}
		for _, p := range produced {
			if !IsCompatible(v.MediaType, p) {
				continue
			}
			mt := MostSpecific(v.MediaType.WithoutParams(), p.WithoutParams())
			if mt.IsWildcardType() || (mt.Type == "application" && mt.IsWildcardSubtype()) {
				mt = OctetStream
			} else if mt.IsWildcard() {
				continue
			}
			if !accept.IsAcceptable(mt) || seen[mt.String()] {
				continue
			}
			seen[mt.String()] = true
			result = append(result, mt)
		}
	}
	return result
}
