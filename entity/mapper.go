// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package entity

import (
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restdata"
)

// errorMapper maps any error to a restdata.ErrorResponse, with the
// status code from the error's HTTPStatus() method if it has one.
// Since it declares no error type, any more specific mapper wins.
type errorMapper struct{}

func (errorMapper) ToResponse(err error) *provider.Response {
	var resp restdata.ErrorResponse
	resp.FromError(err)
	return &provider.Response{
		Status: restdata.StatusOf(err),
		Entity: resp,
	}
}
