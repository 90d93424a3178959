// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"context"
	"reflect"
)

// ObjectFactory creates the objects behind registered providers and
// resources.
type ObjectFactory interface {
	// Instance returns the object to use for one request.
	Instance(ctx context.Context) (interface{}, error)

	// InstanceType returns the dynamic type of the objects this
	// returns.  This is the object's identity for uniqueness
	// checks.
	InstanceType() reflect.Type

	// Prototype returns a representative object, used to read
	// its declarations (Produces(), EntityType(), and so on)
	// without creating a real instance.
	Prototype() interface{}
}

type singletonFactory struct {
	instance interface{}
}

// Singleton returns a factory that always returns v.
func Singleton(v interface{}) ObjectFactory {
	return singletonFactory{instance: v}
}

func (f singletonFactory) Instance(ctx context.Context) (interface{}, error) {
	return f.instance, nil
}

func (f singletonFactory) InstanceType() reflect.Type {
	return reflect.TypeOf(f.instance)
}

func (f singletonFactory) Prototype() interface{} {
	return f.instance
}

type perRequestFactory struct {
	prototype interface{}
	create    func(context.Context) (interface{}, error)
}

// PerRequest returns a factory that calls create for every request.
// prototype must have the same dynamic type as the objects create
// returns; it is only used for its declarations.
func PerRequest(prototype interface{}, create func(context.Context) (interface{}, error)) ObjectFactory {
	return perRequestFactory{prototype: prototype, create: create}
}

func (f perRequestFactory) Instance(ctx context.Context) (interface{}, error) {
	return f.create(ctx)
}

func (f perRequestFactory) InstanceType() reflect.Type {
	return reflect.TypeOf(f.prototype)
}

func (f perRequestFactory) Prototype() interface{} {
	return f.prototype
}

// FromType returns a factory holding a single zero-valued object of
// type t.  If t is a pointer type, the object is a pointer to a new
// zero value.
func FromType(t reflect.Type) ObjectFactory {
	return singletonFactory{instance: newInstance(t)}
}

// PerRequestType returns a factory that creates a new zero-valued
// object of type t for every request, in the same way as FromType.
func PerRequestType(t reflect.Type) ObjectFactory {
	return PerRequest(newInstance(t), func(context.Context) (interface{}, error) {
		return newInstance(t), nil
	})
}

func newInstance(t reflect.Type) interface{} {
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.New(t).Elem().Interface()
}
