// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package multipart

import (
	"bytes"
	"context"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/stretchr/testify/assert"
	"io"
	"io/ioutil"
	"math/rand"
	"net/http"
	"reflect"
	"strings"
	"testing"
)

var (
	stringType = reflect.TypeOf("")
	bytesType  = reflect.TypeOf([]byte(nil))
)

type textWriter struct{}

func (textWriter) EntityType() reflect.Type { return stringType }
func (textWriter) Produces() []string      { return []string{"text/plain"} }

func (textWriter) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return true
}

func (textWriter) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	header.Set("X-Written-By", "text")
	_, err := io.WriteString(w, v.(string))
	return err
}

type bytesWriter struct{}

func (bytesWriter) EntityType() reflect.Type { return bytesType }

func (bytesWriter) IsWriteable(t reflect.Type, mt mediatype.MediaType) bool {
	return true
}

func (bytesWriter) WriteTo(ctx context.Context, v interface{}, mt mediatype.MediaType, header http.Header, w io.Writer) error {
	_, err := w.Write(v.([]byte))
	return err
}

type textReader struct{}

func (textReader) EntityType() reflect.Type { return stringType }
func (textReader) Consumes() []string      { return []string{"text/*"} }

func (textReader) IsReadable(t reflect.Type, mt mediatype.MediaType) bool {
	return true
}

func (textReader) ReadFrom(ctx context.Context, t reflect.Type, mt mediatype.MediaType, header http.Header, r io.Reader) (interface{}, error) {
	b, err := ioutil.ReadAll(r)
	return string(b), err
}

func testContext() context.Context {
	reg := provider.NewRegistry(nil)
	reg.AddDefault(textWriter{})
	reg.AddDefault(bytesWriter{})
	reg.AddDefault(textReader{})
	return provider.NewContext(context.Background(), reg)
}

// TestWriterRoundTrip writes random binary parts and reads them back.
func TestWriterRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	var bodies [][]byte
	for _, size := range []int{0, 1, 2, 100, minBufferSize - 1, minBufferSize, 3*minBufferSize + 17} {
		body := make([]byte, size)
		r.Read(body)
		bodies = append(bodies, body)
	}
	// Line breaks at the very end of a body are part of the body
	bodies = append(bodies, []byte("ends with CRLF\r\n"), []byte("\r"), []byte("\n\n"))

	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.True(t, strings.HasPrefix(w.Boundary(), "wink-"))
	for i, body := range bodies {
		h := Header{}
		h.Set("Content-Type", "application/octet-stream")
		h.Set("X-Index", string(rune('a'+i)))
		pw, err := w.CreatePart(h)
		if !assert.NoError(t, err) {
			return
		}
		_, err = pw.Write(body)
		assert.NoError(t, err)
	}
	if !assert.NoError(t, w.Close()) {
		return
	}

	reader, err := NewReaderForType(&buf, w.ContentType("mixed"))
	if !assert.NoError(t, err) {
		return
	}
	parts, err := reader.ReadAll()
	if !assert.NoError(t, err) || !assert.Len(t, parts, len(bodies)) {
		return
	}
	for i, part := range parts {
		assert.Equal(t, len(bodies[i]), len(part.Body), "part %d", i)
		assert.True(t, bytes.Equal(bodies[i], part.Body), "part %d", i)
		assert.Equal(t, string(rune('a'+i)), part.Header.Get("x-index"))
		assert.Equal(t, mediatype.OctetStream, part.ContentType())
	}
}

// TestOutMultiPart writes entities through the provider registry and
// reads them back.
func TestOutMultiPart(t *testing.T) {
	ctx := testContext()
	binary := []byte{0, 1, 2, '\r', '\n', '-', '-'}
	mp := &OutMultiPart{Subtype: "form-data"}
	mp.AddPart(OutPart{Entity: "hello"})
	mp.AddPart(OutPart{ContentType: mediatype.OctetStream, Entity: binary})
	mp.AddPart(OutPart{
		Header:      Header{"X-Custom": []string{"yes"}},
		ContentType: mediatype.TextPlain,
		Entity:      "",
	})

	ct := mp.ContentType()
	assert.Equal(t, "multipart", ct.Type)
	assert.Equal(t, "form-data", ct.Subtype)
	assert.Equal(t, mp.Boundary, ct.Param("boundary"))
	assert.NotEmpty(t, mp.Boundary)

	var buf bytes.Buffer
	if !assert.NoError(t, mp.Write(ctx, &buf)) {
		return
	}
	reader, err := NewReaderForType(&buf, ct)
	if !assert.NoError(t, err) {
		return
	}
	parts, err := reader.ReadAll()
	if !assert.NoError(t, err) || !assert.Len(t, parts, 3) {
		return
	}

	assert.Equal(t, "text/plain", parts[0].Header.Get("content-type"))
	assert.Equal(t, "text", parts[0].Header.Get("x-written-by"))
	entity, err := parts[0].Entity(ctx, stringType)
	if assert.NoError(t, err) {
		assert.Equal(t, "hello", entity)
	}

	assert.Equal(t, mediatype.OctetStream, parts[1].ContentType())
	assert.Equal(t, binary, parts[1].Body)
	_, err = parts[1].Entity(ctx, stringType)
	assert.IsType(t, provider.ErrNoReader{}, err)

	assert.Equal(t, "yes", parts[2].Header.Get("x-custom"))
	assert.Empty(t, parts[2].Body)
}

// TestOutMultiPartNoRegistry checks that writing needs a registry.
func TestOutMultiPartNoRegistry(t *testing.T) {
	mp := &OutMultiPart{Parts: []OutPart{{Entity: "x"}}}
	err := mp.Write(context.Background(), ioutil.Discard)
	assert.Equal(t, ErrNoRegistry, err)

	part := &Part{Header: Header{}, Body: strings.NewReader("x")}
	_, err = part.Entity(context.Background(), stringType)
	assert.Equal(t, ErrNoRegistry, err)
}

// TestReaderForType checks content type validation.
func TestReaderForType(t *testing.T) {
	_, err := NewReaderForType(strings.NewReader(""), mediatype.MultipartMixed)
	assert.IsType(t, ErrNoBoundary{}, err)
	_, err = NewReaderForType(strings.NewReader(""), mediatype.TextPlain.WithParam("boundary", "x"))
	assert.IsType(t, ErrNoBoundary{}, err)

	reader, err := NewReaderForType(strings.NewReader("--x\r\n\r\nbody\r\n--x--"),
		mediatype.MultipartFormData.WithParam("boundary", "x"))
	if assert.NoError(t, err) {
		assert.Equal(t, "form-data", reader.ContentType.Subtype)
		if assert.True(t, reader.Next()) {
			body, err := ioutil.ReadAll(reader.Part().Body)
			assert.NoError(t, err)
			assert.Equal(t, "body", string(body))
			assert.Equal(t, mediatype.TextPlain, reader.Part().ContentType())
		}
		assert.False(t, reader.Next())
		assert.NoError(t, reader.Err())
		assert.Nil(t, reader.Part())
	}
}

func TestHeader(t *testing.T) {
	h := Header{}
	h.Add("content-type", "text/plain")
	h.Add("X-MULTI", "1")
	h.Add("x-multi", "2")
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
	assert.Equal(t, []string{"1", "2"}, h.Values("X-Multi"))
	assert.Equal(t, []string{"Content-Type", "X-Multi"}, h.Keys())

	clone := h.Clone()
	h.Set("x-multi", "3")
	assert.Equal(t, []string{"3"}, h.Values("x-multi"))
	assert.Equal(t, []string{"1", "2"}, clone.Values("x-multi"))

	h.Del("X-Multi")
	assert.Equal(t, "", h.Get("x-multi"))
	assert.Equal(t, "text/plain", http.Header(h).Get("content-type"))
}
