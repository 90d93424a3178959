// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package multipart

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"io"
	"io/ioutil"
	"strings"
	"testing"
	"testing/iotest"
)

// parseAll buffers every part of a message.
func parseAll(r io.Reader, boundary string) ([]*BufferedPart, error) {
	return NewReader(r, boundary).ReadAll()
}

// readers returns a set of differently-chunked readers over the same
// message.
func readers(message string) map[string]func() io.Reader {
	return map[string]func() io.Reader{
		"whole": func() io.Reader {
			return strings.NewReader(message)
		},
		"one byte": func() io.Reader {
			return iotest.OneByteReader(strings.NewReader(message))
		},
		"half": func() io.Reader {
			return iotest.HalfReader(strings.NewReader(message))
		},
		"data err": func() io.Reader {
			return iotest.DataErrReader(strings.NewReader(message))
		},
	}
}

// TestCarriageReturnMessage parses a message that uses bare CR line
// breaks around the boundaries, mixed with LF inside the parts.
func TestCarriageReturnMessage(t *testing.T) {
	boundary := "test boundry"
	nl := "\r"
	message := "bla bla bla\n" +
		"\n--" + boundary + nl +
		"content-type: message/http;version=1.1;msgtype=request\n" +
		nl + "bla bla bla\n" + nl + "bla bla bla\n" + nl +
		"bla bla bla\n" + nl + "--" + boundary + "--" + nl

	for name, reader := range readers(message) {
		parts, err := parseAll(reader(), boundary)
		if !assert.NoError(t, err, name) || !assert.Len(t, parts, 1, name) {
			continue
		}
		assert.Equal(t, "message/http;version=1.1;msgtype=request",
			parts[0].Header.Get("Content-Type"), name)
		assert.Equal(t, "bla bla bla\n\rbla bla bla\n\rbla bla bla\n",
			string(parts[0].Body), name)
	}
}

// TestBatchMessage parses a batch of several parts, one of which
// contains a line that looks like a different boundary.
func TestBatchMessage(t *testing.T) {
	boundary := "test boundry"
	nl := "\r"
	request := func(method, path string, headers ...string) string {
		s := "--" + boundary + nl +
			"content-type: message/http;version=1.1;msgtype=request" + nl +
			nl +
			method + " " + path + " HTTP/1.1" + nl
		for _, h := range headers {
			s += h + nl
		}
		return s + nl + "..." + nl + nl
	}
	message := request("PUT", "/service/business-services/phone-book",
		"content-type: application/atom+xml;type=entry") +
		request("POST", "/service/implementations",
			"content-type: application/atom+xml;type=entry",
			"slug: implementations/my-new-implementation") +
		"--symphony-batch" + nl + nl +
		"DELETE /service/documentations/obsolete-documentation HTTP/1.1" + nl + nl +
		"..." + nl + nl +
		request("POST", "/service/documentations",
			"content-type: application/msword") +
		request("POST", "/service/ws-policies",
			"content-type: application/xml") +
		request("POST", "/service/ws-policies",
			"content-type: application/atom+xml") +
		"--" + boundary + "--" + nl + nl

	for name, reader := range readers(message) {
		parts, err := parseAll(reader(), boundary)
		if !assert.NoError(t, err, name) || !assert.Len(t, parts, 5, name) {
			continue
		}
		for _, part := range parts {
			assert.Equal(t, []string{"Content-Type"}, part.Header.Keys(), name)
			assert.True(t, bytes.HasSuffix(part.Body, []byte("..."+nl)), name)
		}
		assert.True(t, bytes.HasPrefix(parts[0].Body, []byte("PUT ")), name)
		assert.Contains(t, string(parts[1].Body), "--symphony-batch", name)
		assert.Contains(t, string(parts[1].Body), "DELETE /service", name)
		assert.True(t, bytes.HasPrefix(parts[4].Body, []byte("POST /service/ws-policies")), name)
	}
}

// hugeMessage generates a message with a very large single body
// without holding it in memory.
type hugeMessage struct {
	prefix []byte
	suffix []byte
	length int64
	pos    int64
}

func (h *hugeMessage) Read(b []byte) (int, error) {
	prefixEnd := int64(len(h.prefix))
	bodyEnd := prefixEnd + h.length
	total := bodyEnd + int64(len(h.suffix))
	if h.pos >= total {
		return 0, io.EOF
	}
	n := 0
	for n < len(b) && h.pos < total {
		var m int
		switch {
		case h.pos < prefixEnd:
			m = copy(b[n:], h.prefix[h.pos:])
		case h.pos < bodyEnd:
			run := bodyEnd - h.pos
			if run > int64(len(b)-n) {
				run = int64(len(b) - n)
			}
			for i := int64(0); i < run; i++ {
				b[n+int(i)] = 'A'
			}
			m = int(run)
		default:
			m = copy(b[n:], h.suffix[h.pos-bodyEnd:])
		}
		n += m
		h.pos += int64(m)
	}
	return n, nil
}

// TestHugeMessage streams a 100 MB body as one part.
func TestHugeMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 100 MB message in short mode")
	}
	boundary := "This is my boundery 123"
	nl := "\r"
	prefix := "bla bla bla\n" +
		"\n--" + boundary + nl +
		"content-type: message/http;version=1.1;msgtype=request\n" +
		nl +
		"bla bla bla\n" + nl +
		"bla bla bla\n" + nl
	suffix := "bla bla bla\n" + nl + "--" + boundary + "--" + nl
	const length = 100000000

	parser := NewParser(&hugeMessage{
		prefix: []byte(prefix),
		suffix: []byte(suffix),
		length: length,
	}, boundary)
	parts := 0
	var size int64
	for {
		more, err := parser.NextPart()
		if !assert.NoError(t, err) {
			return
		}
		if !more {
			break
		}
		parts++
		n, err := io.Copy(ioutil.Discard, parser.Body())
		assert.NoError(t, err)
		size += n
	}
	assert.Equal(t, 1, parts)
	assert.Equal(t, int64(13+13+length+12), size)
	assert.Equal(t, minBufferSize, len(parser.buf))
}

// TestBodyLength checks that a short body is returned exactly.
func TestBodyLength(t *testing.T) {
	boundary := "This is my boundery 123"
	nl := "\r"
	prefix := "bla bla bla\n" +
		"\n--" + boundary + nl +
		"content-type: message/http;version=1.1;msgtype=request\n" +
		nl
	suffix := nl + "--" + boundary + "--" + nl

	parser := NewParser(&hugeMessage{
		prefix: []byte(prefix),
		suffix: []byte(suffix),
		length: 12,
	}, boundary)
	more, err := parser.NextPart()
	if !assert.NoError(t, err) || !assert.True(t, more) {
		return
	}
	body, err := ioutil.ReadAll(parser.Body())
	if assert.NoError(t, err) {
		assert.Equal(t, "AAAAAAAAAAAA", string(body))
	}
	more, err = parser.NextPart()
	assert.NoError(t, err)
	assert.False(t, more)
}

// TestDelimiterRecognition checks what is and is not a boundary line.
func TestDelimiterRecognition(t *testing.T) {
	message := "--B\r\n\r\n" +
		"abc--B def\r\n" +
		"--Bxyz\r\n" +
		"--B  \r\n" +
		"X: 1\r\n\r\n" +
		"second\r\n" +
		"--B--"
	for name, reader := range readers(message) {
		parts, err := parseAll(reader(), "B")
		if !assert.NoError(t, err, name) || !assert.Len(t, parts, 2, name) {
			continue
		}
		assert.Equal(t, "abc--B def\r\n--Bxyz", string(parts[0].Body), name)
		assert.Equal(t, "1", parts[1].Header.Get("x"), name)
		assert.Equal(t, "second", string(parts[1].Body), name)
	}
}

// TestLineBreaks checks that the line break before a boundary belongs
// to the boundary, and any other line breaks to the body.
func TestLineBreaks(t *testing.T) {
	tests := []struct {
		Body     string
		Expected string
	}{
		{"abc\r\n", "abc"},
		{"abc\n", "abc"},
		{"abc\r", "abc"},
		{"abc\r\r\n", "abc\r"},
		{"abc\n\r\n", "abc\n"},
		{"abc\r\n\r\n", "abc\r\n"},
		{"abc\n\r", "abc\n"},
		{"", ""},
		{"\r\n", ""},
	}
	for _, test := range tests {
		message := "--B\r\n\r\n" + test.Body + "--B--\r\n"
		for name, reader := range readers(message) {
			parts, err := parseAll(reader(), "B")
			if assert.NoError(t, err, "%q %v", test.Body, name) &&
				assert.Len(t, parts, 1, "%q %v", test.Body, name) {
				assert.Equal(t, test.Expected, string(parts[0].Body), "%q %v", test.Body, name)
			}
		}
	}
}

// TestTruncated checks that a message without a closing boundary
// ends with its last part.
func TestTruncated(t *testing.T) {
	for name, reader := range readers("preamble\r\n--B\r\nA: 1\r\n\r\nbody text") {
		parts, err := parseAll(reader(), "B")
		if assert.NoError(t, err, name) && assert.Len(t, parts, 1, name) {
			assert.Equal(t, "1", parts[0].Header.Get("a"), name)
			assert.Equal(t, "body text", string(parts[0].Body), name)
		}
	}

	// Headers with no blank line after them end the message
	for name, reader := range readers("--B\r\nA: 1\r\nB: 2") {
		parts, err := parseAll(reader(), "B")
		if assert.NoError(t, err, name) && assert.Len(t, parts, 1, name) {
			assert.Equal(t, "2", parts[0].Header.Get("b"), name)
			assert.Empty(t, parts[0].Body, name)
		}
	}

	// No boundary at all is no parts
	parts, err := parseAll(strings.NewReader("just some text"), "B")
	assert.NoError(t, err)
	assert.Empty(t, parts)

	// A boundary with nothing after it at the very end
	parts, err = parseAll(strings.NewReader("--B\r\n\r\nx\r\n--B"), "B")
	if assert.NoError(t, err) && assert.Len(t, parts, 2) {
		assert.Equal(t, "x", string(parts[0].Body))
		assert.Empty(t, parts[1].Header)
		assert.Empty(t, parts[1].Body)
	}
}

// TestHeadersThenBoundary checks header blocks that run straight into
// the next boundary line with no blank line between.
func TestHeadersThenBoundary(t *testing.T) {
	for name, reader := range readers("--b\r\nA: 1\r\n--b--") {
		parts, err := parseAll(reader(), "b")
		if assert.NoError(t, err, name) && assert.Len(t, parts, 1, name) {
			assert.Equal(t, "1", parts[0].Header.Get("a"), name)
			assert.Empty(t, parts[0].Body, name)
		}
	}

	message := "--b\r\nA: 1\r\n--b  \r\nB: 2\r\n\r\nsecond\r\n--b\r\n--b--\r\n"
	for name, reader := range readers(message) {
		parts, err := parseAll(reader(), "b")
		if !assert.NoError(t, err, name) || !assert.Len(t, parts, 3, name) {
			continue
		}
		assert.Equal(t, "1", parts[0].Header.Get("a"), name)
		assert.Empty(t, parts[0].Body, name)
		assert.Equal(t, "2", parts[1].Header.Get("b"), name)
		assert.Equal(t, "second", string(parts[1].Body), name)
		assert.Empty(t, parts[2].Header, name)
		assert.Empty(t, parts[2].Body, name)
	}

	// Something that only looks like a boundary is still malformed
	_, err := parseAll(strings.NewReader("--b\r\nA: 1\r\n--bogus\r\n\r\nx"), "b")
	assert.Equal(t, ErrMalformedHeader{Line: "--bogus"}, err)
}

// TestHeaders checks header parsing.
func TestHeaders(t *testing.T) {
	message := "--B\r\n" +
		"content-TYPE: text/plain\r\n" +
		"X-Thing: one\r\n" +
		"x-thing:two\r\n" +
		"X-Folded: first\r\n" +
		"\tsecond\r\n" +
		"Odd Name : value : with colon\r\n" +
		"\r\n" +
		"body\r\n--B--\r\n"
	parts, err := parseAll(strings.NewReader(message), "B")
	if !assert.NoError(t, err) || !assert.Len(t, parts, 1) {
		return
	}
	h := parts[0].Header
	assert.Equal(t, "text/plain", h.Get("Content-Type"))
	assert.Equal(t, []string{"one", "two"}, h.Values("X-THING"))
	assert.Equal(t, "first second", h.Get("x-folded"))
	assert.Equal(t, "value : with colon", h.Get("ODD NAME"))
	assert.Equal(t, "text/plain", parts[0].ContentType().String())
}

// TestMalformedHeader checks that a header line without a colon is
// an error, and stays an error.
func TestMalformedHeader(t *testing.T) {
	parser := NewParser(strings.NewReader("--B\r\nnocolon\r\n\r\nbody\r\n--B--"), "B")
	more, err := parser.NextPart()
	assert.False(t, more)
	if assert.Error(t, err) {
		assert.Equal(t, ErrMalformedHeader{Line: "nocolon"}, err)
		assert.Equal(t, 400, err.(ErrMalformedHeader).HTTPStatus())
	}
	more, err = parser.NextPart()
	assert.False(t, more)
	assert.Equal(t, ErrMalformedHeader{Line: "nocolon"}, err)
}

// TestHeaderTooLong checks a header line that cannot fit in the
// buffer.
func TestHeaderTooLong(t *testing.T) {
	message := "--B\r\nX-Long: " + strings.Repeat("x", 2*minBufferSize) + "\r\n\r\nbody"
	parser := NewParser(strings.NewReader(message), "B")
	_, err := parser.NextPart()
	assert.Equal(t, ErrHeaderTooLong{Limit: minBufferSize}, err)
}

// TestPartClosed checks that advancing invalidates the previous body.
func TestPartClosed(t *testing.T) {
	message := "--B\r\n\r\nfirst body\r\n--B\r\n\r\nsecond body\r\n--B--\r\n"
	parser := NewParser(strings.NewReader(message), "B")
	assert.Nil(t, parser.Body())
	assert.Nil(t, parser.Headers())

	more, err := parser.NextPart()
	if !assert.NoError(t, err) || !assert.True(t, more) {
		return
	}
	first := parser.Body()
	buf := make([]byte, 5)
	n, err := first.Read(buf)
	if assert.NoError(t, err) {
		assert.Equal(t, "first", string(buf[:n]))
	}

	// Skip the rest of the first part
	more, err = parser.NextPart()
	if !assert.NoError(t, err) || !assert.True(t, more) {
		return
	}
	_, err = first.Read(buf)
	assert.Equal(t, ErrPartClosed, err)

	body, err := ioutil.ReadAll(parser.Body())
	if assert.NoError(t, err) {
		assert.Equal(t, "second body", string(body))
	}

	more, err = parser.NextPart()
	assert.NoError(t, err)
	assert.False(t, more)
	assert.Nil(t, parser.Body())

	more, err = parser.NextPart()
	assert.NoError(t, err)
	assert.False(t, more)
}

// TestLongBoundary checks that a boundary longer than half the
// minimum buffer still works.
func TestLongBoundary(t *testing.T) {
	boundary := strings.Repeat("b", minBufferSize)
	message := "--" + boundary + "\r\n\r\nbody\r\n--" + boundary + "--\r\n"
	parser := NewParser(iotest.HalfReader(strings.NewReader(message)), boundary)
	assert.True(t, len(parser.buf) > 2*len(boundary))
	more, err := parser.NextPart()
	if assert.NoError(t, err) && assert.True(t, more) {
		body, err := ioutil.ReadAll(parser.Body())
		if assert.NoError(t, err) {
			assert.Equal(t, "body", string(body))
		}
	}
}
