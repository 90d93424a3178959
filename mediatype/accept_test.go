// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package mediatype

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestParseAcceptEmpty(t *testing.T) {
	accept, err := ParseAccept("")
	if assert.NoError(t, err) {
		assert.Equal(t, Accept{{MediaType: WildcardType, Q: 1.0}}, accept)
	}
}

func TestParseAcceptSorted(t *testing.T) {
	accept, err := ParseAccept("text/*;q=0.5, */*;q=0.1, text/html;q=0.5, application/json")
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, accept, 4)
	sorted := accept.Sorted()
	var names []string
	for _, v := range sorted {
		names = append(names, v.MediaType.String())
	}
	assert.Equal(t, []string{"application/json", "text/html", "text/*", "*/*"}, names)
	assert.Equal(t, 0.5, sorted[1].Q)
	assert.Nil(t, sorted[1].MediaType.Params)
}

func TestParseAcceptQuality(t *testing.T) {
	accept, err := ParseAccept("text/plain;q=0.12345")
	if assert.NoError(t, err) {
		assert.Equal(t, 0.123, accept[0].Q)
	}

	_, err = ParseAccept("text/plain;q=1.5")
	assert.Equal(t, ErrBadAccept, err)

	_, err = ParseAccept("text/plain;q=xyzzy")
	assert.Error(t, err)

	_, err = ParseAccept(" , ")
	assert.Equal(t, ErrBadAccept, err)
}

func TestIsAcceptable(t *testing.T) {
	accept, err := ParseAccept("text/plain;q=0, text/*")
	if !assert.NoError(t, err) {
		return
	}
	assert.False(t, accept.IsAcceptable(TextPlain))
	assert.True(t, accept.IsAcceptable(TextXML))
	assert.False(t, accept.IsAcceptable(ApplicationJSON))
	assert.Equal(t, []MediaType{MustParse("text/*")}, accept.MediaTypes())
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		Accept   string
		Produced []MediaType
		Expected MediaType
	}{
		{"application/json, text/plain;q=0.5", []MediaType{TextPlain, ApplicationJSON}, ApplicationJSON},
		{"text/plain;q=0.5, application/json", []MediaType{TextPlain, ApplicationJSON}, ApplicationJSON},
		{"*/*", []MediaType{ApplicationCBOR, ApplicationJSON}, ApplicationCBOR},
		{"*/*", []MediaType{WildcardType}, OctetStream},
		{"*/*", nil, OctetStream},
		{"application/*", []MediaType{WildcardType}, OctetStream},
		{"", []MediaType{ApplicationJSON}, ApplicationJSON},
		{"application/vnd.other+json", []MediaType{MustParse("application/*")}, MustParse("application/vnd.other+json")},
	}
	for _, test := range tests {
		accept, err := ParseAccept(test.Accept)
		if !assert.NoError(t, err) {
			continue
		}
		actual, err := Negotiate(accept, test.Produced)
		if assert.NoError(t, err, "Accept: %v", test.Accept) {
			assert.Equal(t, test.Expected, actual, "Accept: %v", test.Accept)
		}
	}
}

func TestNegotiateNotAcceptable(t *testing.T) {
	accept, err := ParseAccept("image/png")
	if !assert.NoError(t, err) {
		return
	}
	_, err = Negotiate(accept, []MediaType{ApplicationJSON})
	if assert.Error(t, err) {
		assert.Equal(t, ErrNotAcceptable{}, err)
		assert.Equal(t, 406, err.(ErrNotAcceptable).HTTPStatus())
	}

	accept, err = ParseAccept("text/plain;q=0, */*")
	if !assert.NoError(t, err) {
		return
	}
	_, err = Negotiate(accept, []MediaType{TextPlain})
	assert.Equal(t, ErrNotAcceptable{}, err)

	accept, err = ParseAccept("text/*")
	if !assert.NoError(t, err) {
		return
	}
	_, err = Negotiate(accept, []MediaType{WildcardType})
	assert.Equal(t, ErrNotAcceptable{}, err)
}

func TestCandidates(t *testing.T) {
	accept, err := ParseAccept("application/json;q=0.9, */*;q=0.1")
	if !assert.NoError(t, err) {
		return
	}
	candidates := Candidates(accept, []MediaType{TextPlain, ApplicationJSON})
	assert.Equal(t, []MediaType{ApplicationJSON, TextPlain}, candidates)
}
