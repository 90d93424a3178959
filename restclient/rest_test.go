// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient_test

import (
	"context"
	"errors"
	"github.com/diffeo/go-wink/entity"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/multipart"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restclient"
	"github.com/diffeo/go-wink/restdata"
	"github.com/diffeo/go-wink/restserver"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
)

type note struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

var noteType = reflect.TypeOf(note{})

type noteResource struct {
	lock  sync.Mutex
	notes map[string]note
}

func (*noteResource) Path() string                { return "/note/{name}" }
func (*noteResource) ResourceName() string        { return "note" }
func (*noteResource) Representation() interface{} { return note{} }

func (r *noteResource) Get(ctx context.Context, req *restserver.Request) (interface{}, error) {
	name, err := req.Var("name")
	if err != nil {
		return nil, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	n, ok := r.notes[name]
	if !ok {
		return nil, restdata.ErrNotFound{Err: errors.New("no such note")}
	}
	return n, nil
}

func (r *noteResource) Put(ctx context.Context, req *restserver.Request, in interface{}) (interface{}, error) {
	n, ok := in.(note)
	if !ok {
		return nil, restdata.ErrBadRequest{Err: errors.New("missing note")}
	}
	n.Name, _ = req.Var("name")
	r.lock.Lock()
	defer r.lock.Unlock()
	r.notes[n.Name] = n
	return n, nil
}

func (r *noteResource) Delete(ctx context.Context, req *restserver.Request) (interface{}, error) {
	name, err := req.Var("name")
	if err != nil {
		return nil, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.notes, name)
	return nil, nil
}

type greetingResource struct{}

func (greetingResource) Path() string         { return "/greeting" }
func (greetingResource) ResourceName() string { return "greeting" }
func (greetingResource) Produces() []string   { return []string{"text/plain"} }

func (greetingResource) Get(ctx context.Context, req *restserver.Request) (interface{}, error) {
	return "hello", nil
}

// partsResource describes each part of a multipart message it is sent.
type partsResource struct{}

func (partsResource) Path() string         { return "/parts" }
func (partsResource) ResourceName() string { return "parts" }
func (partsResource) Representation() interface{} {
	return (*multipart.Reader)(nil)
}

func (partsResource) Post(ctx context.Context, req *restserver.Request, in interface{}) (interface{}, error) {
	reader, ok := in.(*multipart.Reader)
	if !ok {
		return nil, restdata.ErrBadRequest{Err: errors.New("not multipart")}
	}
	parts, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	var result []string
	for _, part := range parts {
		mt := part.ContentType().WithoutParams()
		switch {
		case mediatype.IsJSONType(mt):
			v, err := part.Entity(ctx, noteType)
			if err != nil {
				return nil, err
			}
			result = append(result, mt.String()+" "+v.(note).Name)
		default:
			result = append(result, mt.String()+" "+string(part.Body))
		}
	}
	return result, nil
}

type ClientSuite struct {
	suite.Suite
	Notes  *noteResource
	Server *httptest.Server
	Root   *restclient.Root
}

func (s *ClientSuite) SetupTest() {
	logger, _ := test.NewNullLogger()
	v := provider.NewValidator()
	v.Logger = logger
	providers := provider.NewRegistry(v)
	providers.Logger = logger
	entity.Register(providers)

	resources := restserver.NewResourceRegistry(v)
	resources.Logger = logger
	s.Notes = &noteResource{notes: map[string]note{
		"a":           {Name: "a", Count: 1},
		"hello world": {Name: "hello world", Count: 2},
	}}
	resources.AddDefault(s.Notes)
	resources.AddDefault(greetingResource{})
	resources.AddDefault(partsResource{})

	server := restserver.New(providers, resources)
	server.Logger = logger
	s.Server = httptest.NewServer(server.Handler())

	client := restclient.New(providers)
	client.Logger = logger
	var err error
	s.Root, err = client.Root(context.Background(), s.Server.URL)
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.Server.Close()
}

func (s *ClientSuite) TestRoot() {
	s.Equal("/", s.Root.Representation.URL)
	s.Len(s.Root.Representation.Resources, 3)
	_, err := s.Root.Named("missing", nil)
	s.Equal(restclient.ErrNoResource{Name: "missing"}, err)
}

func (s *ClientSuite) TestGet() {
	var n note
	err := s.Root.GetNamed(context.Background(), "note", map[string]interface{}{"name": "a"}, &n)
	if s.NoError(err) {
		s.Equal(note{Name: "a", Count: 1}, n)
	}
}

func (s *ClientSuite) TestGetEncodedName() {
	var n note
	err := s.Root.GetNamed(context.Background(), "note", map[string]interface{}{"name": "hello world"}, &n)
	if s.NoError(err) {
		s.Equal(2, n.Count)
	}
}

func (s *ClientSuite) TestGetString() {
	var greeting string
	err := s.Root.GetNamed(context.Background(), "greeting", nil, &greeting)
	if s.NoError(err) {
		s.Equal("hello", greeting)
	}
}

func (s *ClientSuite) TestPutDelete() {
	ctx := context.Background()
	res, err := s.Root.Named("note", map[string]interface{}{"name": "b"})
	if !s.NoError(err) {
		return
	}
	var out note
	err = res.Put(ctx, note{Count: 5}, &out)
	if s.NoError(err) {
		s.Equal(note{Name: "b", Count: 5}, out)
	}

	err = res.Delete(ctx)
	s.NoError(err)

	err = res.Get(ctx, &out)
	s.True(restclient.IsNotFound(err))
	s.IsType(restdata.ErrNotFound{}, err)
}

func (s *ClientSuite) TestPutYAML() {
	ctx := context.Background()
	res, err := s.Root.Named("note", map[string]interface{}{"name": "y"})
	if !s.NoError(err) {
		return
	}
	res.Client.ContentType = mediatype.MustParse("application/x-yaml")
	defer func() { res.Client.ContentType = mediatype.MediaType{} }()
	err = res.Put(ctx, note{Count: 9}, nil)
	if s.NoError(err) {
		s.Equal(9, s.Notes.notes["y"].Count)
	}
}

func (s *ClientSuite) TestBadRequest() {
	res, err := s.Root.Named("note", map[string]interface{}{"name": "c"})
	if !s.NoError(err) {
		return
	}
	err = res.Put(context.Background(), nil, nil)
	s.IsType(restdata.ErrBadRequest{}, err)
	s.Equal(http.StatusBadRequest, restdata.StatusOf(err))
}

func (s *ClientSuite) TestPlainNotFound() {
	res, err := s.Root.At("/nowhere", nil)
	if !s.NoError(err) {
		return
	}
	var out note
	err = res.Get(context.Background(), &out)
	if s.IsType(restclient.ErrorHTTP{}, err) {
		s.Equal(http.StatusNotFound, err.(restclient.ErrorHTTP).HTTPStatus())
	}
	s.True(restclient.IsNotFound(err))
}

func (s *ClientSuite) TestMultipart() {
	message := &multipart.OutMultiPart{}
	message.AddPart(multipart.OutPart{Entity: "first"})
	message.AddPart(multipart.OutPart{Entity: note{Name: "second"}})
	var out []string
	err := s.Root.Resource.PostTo(context.Background(), "/parts", nil, message, &out)
	if s.NoError(err) {
		s.Equal([]string{"text/plain first", "application/json second"}, out)
	}
}

func (s *ClientSuite) TestNotPointer() {
	var out note
	err := s.Root.GetNamed(context.Background(), "note", map[string]interface{}{"name": "a"}, out)
	s.IsType(restclient.ErrNotPointer{}, err)
}

func TestClient(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func TestRelativeURL(t *testing.T) {
	client := restclient.New(provider.NewRegistry(nil))
	_, err := client.Resource("")
	assert.Equal(t, restclient.ErrRelativeURL{URL: ""}, err)
}

func TestTemplate(t *testing.T) {
	client := restclient.New(provider.NewRegistry(nil))
	res, err := client.Resource("http://localhost:5980/base/")
	if !assert.NoError(t, err) {
		return
	}
	u, err := res.Template("note/{name}", map[string]interface{}{"name": "-x"})
	if assert.NoError(t, err) {
		assert.Equal(t, "http://localhost:5980/base/note/-LXg", u.String())
	}
	u, err = res.Template("/note/{name}", map[string]interface{}{"name": "plain"})
	if assert.NoError(t, err) {
		assert.Equal(t, "http://localhost:5980/note/plain", u.String())
	}
}
