// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"github.com/sirupsen/logrus"
	"reflect"
	"sync"
)

// Validator checks that types registered as providers or resources
// really have that role, and that each type is only registered once.
// One validator is normally shared by the provider registry and the
// resource registry of an application.
type Validator struct {
	// Logger receives warnings about rejected types.
	Logger logrus.FieldLogger

	lock sync.Mutex
	seen map[reflect.Type]struct{}
}

// NewValidator creates a new validator with no types seen.
func NewValidator() *Validator {
	return &Validator{
		Logger: logrus.StandardLogger(),
		seen:   make(map[reflect.Type]struct{}),
	}
}

// IsValidProvider returns true if t is a provider type that has not
// been seen before, and records it.
func (v *Validator) IsValidProvider(t reflect.Type) bool {
	role := RoleOf(t)
	if role != RoleProvider {
		v.Logger.WithFields(logrus.Fields{
			"type": typeName(t),
			"role": role.String(),
		}).Warn("not a valid provider")
		return false
	}
	return v.classUnique(t)
}

// IsValidResource returns true if t is a resource type, and records
// it.  Static resources must be unique; dynamic resources need not
// be.
func (v *Validator) IsValidResource(t reflect.Type) bool {
	role := RoleOf(t)
	switch role {
	case RoleDynamicResource:
		return true
	case RoleResource:
		return v.classUnique(t)
	}
	v.Logger.WithFields(logrus.Fields{
		"type": typeName(t),
		"role": role.String(),
	}).Warn("not a valid resource")
	return false
}

// classUnique records t, returning false if it had already been
// recorded.
func (v *Validator) classUnique(t reflect.Type) bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.seen == nil {
		v.seen = make(map[reflect.Type]struct{})
	}
	if _, present := v.seen[t]; present {
		v.Logger.WithField("type", typeName(t)).Warn("type already registered, ignoring")
		return false
	}
	v.seen[t] = struct{}{}
	return true
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
