// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/diffeo/go-wink/application"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/multipart"
	"github.com/diffeo/go-wink/restdata"
	"github.com/diffeo/go-wink/restserver"
	"github.com/satori/go.uuid"
	"html"
	"io"
	"io/ioutil"
	"net/http"
	"reflect"
	"sort"
	"sync"
)

// Note is the representation of the note resources.
type Note struct {
	Name string `json:"name" xml:"name" yaml:"name"`
	Text string `json:"text" xml:"text" yaml:"text"`
}

type noteStore struct {
	lock  sync.Mutex
	notes map[string]Note
}

func (s *noteStore) names() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	result := make([]string, 0, len(s.notes))
	for name := range s.notes {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func (s *noteStore) get(name string) (Note, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	n, ok := s.notes[name]
	return n, ok
}

func (s *noteStore) put(n Note) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.notes[n.Name] = n
}

func (s *noteStore) remove(name string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, present := s.notes[name]
	delete(s.notes, name)
	return present
}

// notesResource lists notes and creates new ones.
type notesResource struct {
	store *noteStore
}

func (*notesResource) Path() string                { return "/note" }
func (*notesResource) ResourceName() string        { return "notes" }
func (*notesResource) Representation() interface{} { return Note{} }

func (r *notesResource) Get(ctx context.Context, req *restserver.Request) (interface{}, error) {
	result := make(map[string]string)
	for _, name := range r.store.names() {
		url, err := req.BuildURL("note", "name", name)
		if err != nil {
			return nil, err
		}
		result[name] = url
	}
	return result, nil
}

func (r *notesResource) Post(ctx context.Context, req *restserver.Request, in interface{}) (interface{}, error) {
	n, ok := in.(Note)
	if !ok {
		return nil, restdata.ErrBadRequest{Err: errors.New("missing note")}
	}
	if n.Name == "" {
		n.Name = uuid.NewV4().String()
	}
	r.store.put(n)
	location, err := req.BuildURL("note", "name", n.Name)
	if err != nil {
		return nil, err
	}
	return restserver.Created{Location: location, Body: n}, nil
}

// noteResource reads, replaces, and deletes a single note.
type noteResource struct {
	store *noteStore
}

func (*noteResource) Path() string                { return "/note/{name}" }
func (*noteResource) ResourceName() string        { return "note" }
func (*noteResource) Representation() interface{} { return Note{} }

func (r *noteResource) Get(ctx context.Context, req *restserver.Request) (interface{}, error) {
	name, err := req.Var("name")
	if err != nil {
		return nil, err
	}
	n, ok := r.store.get(name)
	if !ok {
		return nil, restdata.ErrNotFound{Err: fmt.Errorf("no such note %q", name)}
	}
	return n, nil
}

func (r *noteResource) Put(ctx context.Context, req *restserver.Request, in interface{}) (interface{}, error) {
	n, ok := in.(Note)
	if !ok {
		return nil, restdata.ErrBadRequest{Err: errors.New("missing note")}
	}
	n.Name, _ = req.Var("name")
	r.store.put(n)
	return n, nil
}

func (r *noteResource) Delete(ctx context.Context, req *restserver.Request) (interface{}, error) {
	name, err := req.Var("name")
	if err != nil {
		return nil, err
	}
	if !r.store.remove(name) {
		return nil, restdata.ErrNotFound{Err: fmt.Errorf("no such note %q", name)}
	}
	return nil, nil
}

// echoResource returns whatever structured data it is sent, in
// whatever format the client asks for.
type echoResource struct{}

func (echoResource) Path() string         { return "/echo" }
func (echoResource) ResourceName() string { return "echo" }

func (echoResource) Post(ctx context.Context, req *restserver.Request, in interface{}) (interface{}, error) {
	return in, nil
}

// PartSummary describes one part of a multipart message.
type PartSummary struct {
	ContentType string            `json:"content_type" yaml:"content_type"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Size        int64             `json:"size" yaml:"size"`
}

// partsResource streams through a multipart message and describes
// its parts, without buffering any of them.
type partsResource struct{}

func (partsResource) Path() string         { return "/parts" }
func (partsResource) ResourceName() string { return "parts" }
func (partsResource) Consumes() []string   { return []string{"multipart/*"} }
func (partsResource) Representation() interface{} {
	return (*multipart.Reader)(nil)
}

func (partsResource) Post(ctx context.Context, req *restserver.Request, in interface{}) (interface{}, error) {
	reader, ok := in.(*multipart.Reader)
	if !ok || reader == nil {
		return nil, restdata.ErrBadRequest{Err: errors.New("expected a multipart body")}
	}
	var result []PartSummary
	for reader.Next() {
		part := reader.Part()
		size, err := io.Copy(ioutil.Discard, part.Body)
		if err != nil {
			return nil, err
		}
		summary := PartSummary{
			ContentType: part.ContentType().String(),
			Size:        size,
		}
		for _, key := range part.Header.Keys() {
			if summary.Headers == nil {
				summary.Headers = make(map[string]string)
			}
			summary.Headers[key] = part.Header.Get(key)
		}
		result = append(result, summary)
	}
	if err := reader.Err(); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	return result, nil
}

// Greeting is a message to someone.
type Greeting struct {
	Name    string `json:"name" yaml:"name"`
	Message string `json:"message" yaml:"message"`
}

// greetingResource greets whoever is named in the "name" query
// parameter.
type greetingResource struct{}

func (greetingResource) Path() string         { return "/greeting" }
func (greetingResource) ResourceName() string { return "greeting" }

func (greetingResource) Get(ctx context.Context, req *restserver.Request) (interface{}, error) {
	name := req.QueryParams.Get("name")
	if name == "" {
		name = "world"
	}
	return Greeting{Name: name, Message: "Hello, " + name + "!"}, nil
}

var greetingType = reflect.TypeOf(Greeting{})

// greetingHTML writes a Greeting as a small HTML page.
type greetingHTML struct{}

func (greetingHTML) EntityType() reflect.Type { return greetingType }
func (greetingHTML) Produces() []string      { return []string{"text/html"} }

func (greetingHTML) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return t == greetingType
}

func (greetingHTML) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	g, ok := v.(Greeting)
	if !ok {
		return fmt.Errorf("cannot write %T as HTML", v)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><body><h1>%s</h1></body></html>\n", html.EscapeString(g.Message))
	return err
}

// newApplication builds the example application.  Resources are
// singletons sharing one note store; the HTML writer is a class.
func newApplication() application.Application {
	store := &noteStore{notes: make(map[string]Note)}
	return &application.Simple{
		ClassList: []reflect.Type{
			reflect.TypeOf(greetingHTML{}),
		},
		SingletonList: []interface{}{
			&notesResource{store: store},
			&noteResource{store: store},
			echoResource{},
			partsResource{},
			greetingResource{},
		},
	}
}
