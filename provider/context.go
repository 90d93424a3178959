// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"context"
)

type registryKey struct{}

// NewContext returns a context carrying a provider registry, so that
// providers that contain other entities (such as multipart bodies)
// can find providers for them.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// FromContext returns the provider registry stored in a context, if
// any.
func FromContext(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok && r != nil
}
