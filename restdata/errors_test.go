// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"net/http"
	"testing"
)

func TestErrorRoundTrip(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{ErrUnsupportedMediaType{Type: "text/x-foo"}, "ErrUnsupportedMediaType", http.StatusUnsupportedMediaType},
		{ErrNotAcceptable{Accept: "image/png"}, "ErrNotAcceptable", http.StatusNotAcceptable},
		{ErrMethodNotAllowed{Method: "PATCH"}, "ErrMethodNotAllowed", http.StatusMethodNotAllowed},
		{ErrNotFound{Err: errors.New("no such note")}, "ErrNotFound", http.StatusNotFound},
		{ErrBadRequest{Err: errors.New("bad name")}, "ErrBadRequest", http.StatusBadRequest},
	}
	for _, test := range tests {
		var resp ErrorResponse
		resp.FromError(test.err)
		assert.Equal(t, test.code, resp.Error)
		assert.Equal(t, test.err.Error(), resp.Message)
		back := resp.ToError()
		assert.Equal(t, test.err.Error(), back.Error())
		assert.Equal(t, test.status, StatusOf(back))
	}
}

func TestPlainError(t *testing.T) {
	var resp ErrorResponse
	resp.FromError(errors.New("oops"))
	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, "oops", resp.Message)
	assert.EqualError(t, resp.ToError(), "oops")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(resp.ToError()))
}

func TestStatusOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading: %w", ErrNotFound{Err: errors.New("gone")})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestFromPanic(t *testing.T) {
	var resp ErrorResponse
	resp.FromPanic("it broke")
	assert.Equal(t, "panic", resp.Error)
	assert.Equal(t, "it broke", resp.Message)
	assert.Contains(t, resp.Stack, "TestFromPanic")

	resp.FromPanic(errors.New("error value"))
	assert.Equal(t, "error value", resp.Message)
}
