// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrNoPriority is returned from PriorityOverride.Set() if the
// parameter has no ":priority" part.
var ErrNoPriority = errors.New("must specify name:priority")

// PriorityOverride maps Go type names, as reflect.Type.String()
// prints them, to registration priorities.  This implements the
// flag.Value interface, and so a typical use is
//
//     func main() {
//         priorities := config.PriorityOverride{}
//         flag.Var(&priorities, "priority", "type:priority of a provider")
//         flag.Parse()
//         processor.Overrides = priorities
//     }
//
// The flag may be repeated.
type PriorityOverride map[string]float64

// String renders the overrides as a comma-separated list, in name
// order.
func (p *PriorityOverride) String() string {
	if p == nil {
		return ""
	}
	names := make([]string, 0, len(*p))
	for name := range *p {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + strconv.FormatFloat((*p)[name], 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Set parses a string of the form "name:priority" and adds it to the
// overrides.  The name is everything up to the last colon.
//
// This is part of the flag.Value interface.
func (p *PriorityOverride) Set(param string) error {
	colon := strings.LastIndexByte(param, ':')
	if colon < 1 {
		return ErrNoPriority
	}
	priority, err := strconv.ParseFloat(param[colon+1:], 64)
	if err != nil {
		return fmt.Errorf("bad priority in %q: %w", param, err)
	}
	if *p == nil {
		*p = PriorityOverride{}
	}
	(*p)[param[:colon]] = priority
	return nil
}

// PriorityOf returns the priority override for a type, if any.  A
// pointer type also matches an override for the type it points to.
func (p PriorityOverride) PriorityOf(t reflect.Type) (float64, bool) {
	if t == nil {
		return 0, false
	}
	if priority, ok := p[t.String()]; ok {
		return priority, true
	}
	if t.Kind() == reflect.Ptr {
		priority, ok := p[t.Elem().String()]
		return priority, ok
	}
	return 0, false
}
