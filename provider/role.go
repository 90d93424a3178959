// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"reflect"
	"sync"
)

// Role is what part a Go type plays in an application.
type Role int

// Roles a type may have.
const (
	// RoleOther is a type with no recognized role.
	RoleOther Role = iota

	// RoleResource is a type serving a fixed URL path.
	RoleResource

	// RoleDynamicResource is a type whose path is decided per
	// instance.
	RoleDynamicResource

	// RoleProvider is a type with at least one provider
	// capability.
	RoleProvider

	// RoleApplication is a type that lists other classes and
	// singletons.
	RoleApplication

	// RoleAmbiguous is a type that looks like more than one of
	// the above.
	RoleAmbiguous
)

func (r Role) String() string {
	switch r {
	case RoleOther:
		return "other"
	case RoleResource:
		return "resource"
	case RoleDynamicResource:
		return "dynamic resource"
	case RoleProvider:
		return "provider"
	case RoleApplication:
		return "application"
	case RoleAmbiguous:
		return "ambiguous"
	}
	return "unknown"
}

// Resource is implemented by types that serve a fixed path.  The
// path is a gorilla/mux route template.
type Resource interface {
	Path() string
}

// DynamicResource is implemented by types whose instances each serve
// their own path.  Unlike static resources, any number of instances
// of one type may be registered.
type DynamicResource interface {
	DynamicPath() string
}

type application interface {
	Classes() []reflect.Type
	Singletons() []interface{}
}

var (
	resourceType        = reflect.TypeOf((*Resource)(nil)).Elem()
	dynamicResourceType = reflect.TypeOf((*DynamicResource)(nil)).Elem()
	applicationType     = reflect.TypeOf((*application)(nil)).Elem()
)

var roleCache sync.Map // reflect.Type -> Role

// RoleOf returns the role of a Go type.  The result is computed once
// per type.
func RoleOf(t reflect.Type) Role {
	if t == nil {
		return RoleOther
	}
	if role, ok := roleCache.Load(t); ok {
		return role.(Role)
	}
	role := classify(t)
	roleCache.Store(t, role)
	return role
}

// Classify returns the role of the dynamic type of v.
func Classify(v interface{}) Role {
	return RoleOf(reflect.TypeOf(v))
}

func classify(t reflect.Type) Role {
	var roles []Role
	if t.Implements(resourceType) {
		roles = append(roles, RoleResource)
	}
	if t.Implements(dynamicResourceType) {
		roles = append(roles, RoleDynamicResource)
	}
	if KindsOf(t) != 0 {
		roles = append(roles, RoleProvider)
	}
	if t.Implements(applicationType) {
		roles = append(roles, RoleApplication)
	}
	switch len(roles) {
	case 0:
		return RoleOther
	case 1:
		return roles[0]
	}
	return RoleAmbiguous
}
