// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package multipart reads and writes MIME multipart messages
// (RFC 2046 section 5.1) without holding any part body in memory.
//
// The Parser works through a fixed-size look-ahead buffer.  A part
// body of any length streams through it; only a window slightly
// larger than the boundary line is ever held back while the parser
// decides whether it is looking at a delimiter.  Header blocks, on
// the other hand, must fit within the buffer.
//
// The parser is lenient in the way mail and HTTP software tends to
// need: a line break may be CRLF, a bare LF, or a bare CR; text
// before the first boundary is ignored; and a message that ends
// without a closing boundary simply ends with its last part.
package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// minBufferSize is the smallest look-ahead buffer a parser uses.
const minBufferSize = 8192

// ErrPartClosed is returned from reading a part body after the parser
// has moved on to a later part.
var ErrPartClosed = errors.New("multipart: part body read after parser advanced")

// errBufferFull is returned internally when the buffer holds no
// consumable data and has no room for more.
var errBufferFull = errors.New("multipart: buffer full")

// ErrMalformedHeader is returned from Parser.NextPart() when a part
// header line has no colon.
type ErrMalformedHeader struct {
	Line string
}

func (e ErrMalformedHeader) Error() string {
	return fmt.Sprintf("multipart: malformed header line %q", e.Line)
}

// HTTPStatus returns a fixed 400 Bad Request error code.
func (e ErrMalformedHeader) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrHeaderTooLong is returned from Parser.NextPart() when a single
// part header line does not fit in the parser's buffer.
type ErrHeaderTooLong struct {
	Limit int
}

func (e ErrHeaderTooLong) Error() string {
	return fmt.Sprintf("multipart: header line longer than %d bytes", e.Limit)
}

// HTTPStatus returns a fixed 400 Bad Request error code.
func (e ErrHeaderTooLong) HTTPStatus() int {
	return http.StatusBadRequest
}

// delimiter describes a boundary line found in the buffer, starting
// at the read position.
type delimiter struct {
	// length is the number of bytes in the line break before the
	// boundary, the boundary itself, and the rest of its line.
	length int

	// terminal is true for the closing "--boundary--" line, and
	// for the end of the stream.
	terminal bool
}

// Parser is a forward-only reader of one multipart message.  Call
// NextPart() to move to each part in turn; Headers() and Body() then
// describe the current part.  A Parser is not safe for concurrent use.
type Parser struct {
	r     io.Reader
	delim []byte // "--" + boundary

	// buf[rpos:wpos] is data read but not yet consumed
	buf  []byte
	rpos int
	wpos int
	eof  bool

	// avail bytes at rpos are known to be body data
	avail int

	// found, if not nil, is the delimiter at rpos+avail
	found *delimiter

	// bodyStart is true if nothing has been consumed from the
	// current body, so a boundary at rpos is at the start of a
	// line
	bodyStart bool

	done bool
	err  error

	headers Header
	body    *partReader
	gen     int
}

// NewParser creates a parser reading a multipart message from r.
// boundary is the boundary parameter of the message's content type,
// without the leading "--".
func NewParser(r io.Reader, boundary string) *Parser {
	delim := []byte("--" + boundary)
	size := 2*len(delim) + 8
	if size < minBufferSize {
		size = minBufferSize
	}
	return &Parser{
		r:         r,
		delim:     delim,
		buf:       make([]byte, size),
		bodyStart: true,
	}
}

// NextPart advances to the next part, discarding anything unread in
// the current one.  It returns false with no error after the last
// part.  Once it returns an error it will keep returning that error.
func (p *Parser) NextPart() (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	if p.done {
		return false, nil
	}

	// Any reader of the previous body is now dead
	p.gen++
	p.body = nil
	p.headers = nil

	if err := p.discard(); err != nil {
		p.err = err
		return false, err
	}
	d := p.found
	p.rpos += d.length
	p.found = nil
	if d.terminal {
		p.done = true
		return false, nil
	}

	headers, err := p.readHeaders()
	if err != nil {
		p.err = err
		return false, err
	}
	p.headers = headers
	p.bodyStart = true
	p.body = &partReader{p: p, gen: p.gen}
	return true, nil
}

// Headers returns the headers of the current part, or nil before the
// first part and after the last.
func (p *Parser) Headers() Header {
	return p.headers
}

// Body returns a reader for the body of the current part, or nil
// before the first part and after the last.  The reader returns
// ErrPartClosed once NextPart() has been called again.
func (p *Parser) Body() io.Reader {
	if p.body == nil {
		return nil
	}
	return p.body
}

// partReader reads one part body from its parser.
type partReader struct {
	p   *Parser
	gen int
}

func (pr *partReader) Read(b []byte) (int, error) {
	if pr.gen != pr.p.gen {
		return 0, ErrPartClosed
	}
	return pr.p.readBody(b)
}

// readBody copies current body data into b.
func (p *Parser) readBody(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	if len(b) == 0 {
		return 0, nil
	}
	if err := p.next(); err != nil {
		p.err = err
		return 0, err
	}
	if p.avail == 0 {
		return 0, io.EOF
	}
	n := p.avail
	if n > len(b) {
		n = len(b)
	}
	copy(b, p.buf[p.rpos:p.rpos+n])
	p.rpos += n
	p.avail -= n
	p.bodyStart = false
	return n, nil
}

// discard skips the rest of the current body (or preamble), leaving
// the read position at the delimiter that ends it.
func (p *Parser) discard() error {
	for {
		if err := p.next(); err != nil {
			return err
		}
		if p.avail == 0 {
			return nil
		}
		p.rpos += p.avail
		p.avail = 0
		p.bodyStart = false
	}
}

// next ensures either that some body data is available, or that the
// delimiter ending the body has been found.
func (p *Parser) next() error {
	for p.avail == 0 && p.found == nil {
		safe, d := p.scan()
		if d != nil {
			p.avail = safe
			p.found = d
			break
		}
		if safe > 0 {
			p.avail = safe
			break
		}
		err := p.fill()
		if err == io.EOF {
			// Nothing at all left: this is an implicit
			// closing boundary
			p.found = &delimiter{terminal: true}
		} else if err != nil {
			return err
		}
	}
	return nil
}

// fill reads more data into the buffer, compacting it first.  It
// returns io.EOF only if the stream had already ended.
func (p *Parser) fill() error {
	if p.eof {
		return io.EOF
	}
	if p.rpos > 0 {
		copy(p.buf, p.buf[p.rpos:p.wpos])
		p.wpos -= p.rpos
		p.rpos = 0
	}
	if p.wpos == len(p.buf) {
		return errBufferFull
	}
	n, err := p.r.Read(p.buf[p.wpos:])
	p.wpos += n
	if err == io.EOF {
		p.eof = true
		return nil
	}
	return err
}

// scan looks for a delimiter in the unconsumed data.  It returns the
// number of bytes from the read position that are certainly body
// data, and the delimiter immediately after them if one was found.
func (p *Parser) scan() (int, *delimiter) {
	data := p.buf[p.rpos:p.wpos]
	full := p.rpos == 0 && p.wpos == len(p.buf)
	for i := 0; i < len(data); {
		j := bytes.Index(data[i:], p.delim)
		if j < 0 {
			break
		}
		j += i
		i = j + 1

		// The boundary must start a line
		var nl int
		switch {
		case j >= 2 && data[j-2] == '\r' && data[j-1] == '\n':
			nl = 2
		case j >= 1 && (data[j-1] == '\n' || data[j-1] == '\r'):
			nl = 1
		case j == 0 && p.bodyStart:
			nl = 0
		default:
			continue
		}

		rest, terminal, ok := p.tail(data[j+len(p.delim):], full)
		if !ok {
			continue
		}
		if rest < 0 {
			// Can't tell yet; everything before the line
			// break is still safe
			return j - nl, nil
		}
		return j - nl, &delimiter{
			length:   nl + len(p.delim) + rest,
			terminal: terminal,
		}
	}
	if p.eof {
		return len(data), nil
	}

	// Hold back enough to recognize a line break and a partial
	// boundary at the end of the buffer
	keep := len(p.delim) + 2
	if len(data) <= keep {
		return 0, nil
	}
	return len(data) - keep, nil
}

// tail examines what follows a boundary string.  It returns the
// number of bytes in the rest of the boundary line (-1 if more data
// is needed to decide), whether it is the closing boundary, and
// whether it is a boundary line at all.
func (p *Parser) tail(after []byte, full bool) (int, bool, bool) {
	if len(after) >= 2 && after[0] == '-' && after[1] == '-' {
		return 2, true, true
	}
	if len(after) == 1 && after[0] == '-' && !p.eof {
		return -1, false, true
	}
	k := 0
	for k < len(after) && (after[k] == ' ' || after[k] == '\t') {
		k++
	}
	switch {
	case k == len(after):
		if p.eof {
			return k, false, true
		}
		if full {
			return 0, false, false
		}
		return -1, false, true
	case after[k] == '\n':
		return k + 1, false, true
	case after[k] == '\r':
		if k+1 < len(after) {
			if after[k+1] == '\n' {
				return k + 2, false, true
			}
			return k + 1, false, true
		}
		if p.eof {
			return k + 1, false, true
		}
		if full {
			return 0, false, false
		}
		return -1, false, true
	}
	return 0, false, false
}

// readLine returns the next line from the buffer without its line
// break, and the number of bytes consumed including the break.  The
// result is only valid until the next read.  It returns io.EOF at the
// end of the stream.
func (p *Parser) readLine() ([]byte, int, error) {
	for {
		data := p.buf[p.rpos:p.wpos]
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			brk := 0
			switch {
			case data[i] == '\n':
				brk = 1
			case i+1 < len(data) && data[i+1] == '\n':
				brk = 2
			case i+1 < len(data) || p.eof:
				brk = 1
			}
			if brk > 0 {
				p.rpos += i + brk
				return data[:i], i + brk, nil
			}
		} else if p.eof {
			if len(data) == 0 {
				return nil, 0, io.EOF
			}
			p.rpos = p.wpos
			return data, len(data), nil
		}
		err := p.fill()
		if err == errBufferFull {
			return nil, 0, ErrHeaderTooLong{Limit: len(p.buf)}
		} else if err != nil && err != io.EOF {
			return nil, 0, err
		}
	}
}

// readHeaders reads a part's header block, through the blank line
// that ends it.  Lines beginning with whitespace continue the
// previous header's value.  A boundary line also ends the block, and
// is left in the buffer to end an empty body.
func (p *Parser) readHeaders() (Header, error) {
	headers := make(Header)
	last := ""
	for {
		line, n, err := p.readLine()
		if err == io.EOF {
			return headers, nil
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return headers, nil
		}
		if (line[0] == ' ' || line[0] == '\t') && last != "" {
			values := headers[last]
			values[len(values)-1] += " " + string(bytes.TrimSpace(line))
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			if p.isBoundaryLine(line) {
				p.rpos -= n
				return headers, nil
			}
			return nil, ErrMalformedHeader{Line: string(line)}
		}
		name := string(bytes.TrimSpace(line[:colon]))
		if name == "" {
			return nil, ErrMalformedHeader{Line: string(line)}
		}
		headers.Add(name, string(bytes.TrimSpace(line[colon+1:])))
		last = CanonicalKey(name)
	}
}

// isBoundaryLine returns true if line, without its line break, is a
// delimiter or closing delimiter line.
func (p *Parser) isBoundaryLine(line []byte) bool {
	if !bytes.HasPrefix(line, p.delim) {
		return false
	}
	rest := bytes.TrimRight(line[len(p.delim):], " \t")
	return len(rest) == 0 || bytes.Equal(rest, []byte("--"))
}
