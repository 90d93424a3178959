// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/multipart"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// errNoBoundaryLine is returned when splitting a message with no
// content type whose first line is not a boundary delimiter.
var errNoBoundaryLine = errors.New("message does not start with a boundary line")

// sniffBoundary reads the boundary from the first line of a message,
// which must be "--boundary".  The returned reader still includes
// that line.
func sniffBoundary(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReader(r)
	line, err := br.Peek(72 + 4)
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	if end := bytes.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimRight(line, "\r \t")
	if !bytes.HasPrefix(line, []byte("--")) || len(line) == 2 {
		return "", nil, errNoBoundaryLine
	}
	return string(line[2:]), br, nil
}

// partFilename picks the output file name for the n'th part.  A
// Content-Disposition: filename wins, then an extension from the
// part's media type.
func partFilename(n int, header multipart.Header, mt mediatype.MediaType) string {
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		if name := filepath.Base(params["filename"]); name != "." && name != "/" && name != "" {
			return name
		}
	}
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(mt.WithoutParams().String()); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("part-%03d%s", n, ext)
}

// split writes each part of a multipart message to its own file in
// dir, streaming the bodies, and returns the file names.  If mt is
// zero, the boundary is taken from the message's first line.
func (t winkTool) split(r io.Reader, mt mediatype.MediaType, dir string) ([]string, error) {
	var reader *multipart.Reader
	if mt.IsZero() {
		boundary, br, err := sniffBoundary(r)
		if err != nil {
			return nil, err
		}
		reader = multipart.NewReader(br, boundary)
	} else {
		var err error
		reader, err = multipart.NewReaderForType(r, mt)
		if err != nil {
			return nil, err
		}
	}

	var names []string
	for reader.Next() {
		part := reader.Part()
		ct := part.ContentType()
		name := filepath.Join(dir, partFilename(len(names)+1, part.Header, ct))
		f, err := os.Create(name)
		if err != nil {
			return names, err
		}
		size, err := io.Copy(f, part.Body)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return names, err
		}
		logrus.WithFields(logrus.Fields{
			"file":         name,
			"content-type": ct.String(),
			"size":         size,
		}).Debug("wrote part")
		names = append(names, name)
	}
	return names, reader.Err()
}

// join builds a multipart message from files and writes it to w
// through the provider registry, returning its content type.
func (t winkTool) join(ctx context.Context, filenames []string, subtype string, w io.Writer) (mediatype.MediaType, error) {
	msg := &multipart.OutMultiPart{Subtype: subtype}
	for _, filename := range filenames {
		body, err := ioutil.ReadFile(filename)
		if err != nil {
			return mediatype.MediaType{}, err
		}
		header := multipart.Header{}
		header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": filepath.Base(filename),
		}))
		msg.AddPart(multipart.OutPart{
			Header:      header,
			ContentType: guessType(filename),
			Entity:      body,
		})
	}
	mt := msg.ContentType()
	err := t.Providers.Write(ctx, msg, mt, http.Header{}, w)
	return mt, err
}

var splitCommand = cli.Command{
	Name:      "split",
	Usage:     "write each part of a multipart message to a file",
	ArgsUsage: "[FILE]",
	Flags: []cli.Flag{
		cli.GenericFlag{
			Name:  "content-type",
			Value: &mediaTypeValue{},
			Usage: "multipart media type with boundary (default: from the first line)",
		},
		cli.StringFlag{
			Name:  "dir",
			Value: ".",
			Usage: "directory to write parts to",
		},
	},
	Action: func(c *cli.Context) error {
		var in io.Reader = os.Stdin
		if filename := c.Args().First(); filename != "" && filename != "-" {
			f, err := os.Open(filename)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		var mt mediatype.MediaType
		if v, ok := c.Generic("content-type").(*mediaTypeValue); ok {
			mt = v.MediaType
		}
		names, err := wink.split(in, mt, c.String("dir"))
		for _, name := range names {
			fmt.Fprintln(wink.Out, name)
		}
		return err
	},
}

var joinCommand = cli.Command{
	Name:      "join",
	Usage:     "build a multipart message from files",
	ArgsUsage: "FILE...",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "subtype",
			Value: "mixed",
			Usage: "multipart subtype",
		},
	},
	Action: func(c *cli.Context) error {
		mt, err := wink.join(wink.entityContext(), c.Args(), c.String("subtype"), wink.Out)
		if err == nil {
			fmt.Fprintf(os.Stderr, "Content-Type: %s\n", mt)
		}
		return err
	},
}
