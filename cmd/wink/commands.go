// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/restclient"
	"github.com/urfave/cli"
	"io/ioutil"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

// defaultAccept prefers structured data, but takes whatever the
// resource produces.
const defaultAccept = "application/json, text/plain;q=0.9, */*;q=0.5"

var errNoURL = errors.New("no URL given")

// client returns a copy of the tool's client that sends accept, or
// its configured Accept: header if accept is empty.
func (t winkTool) client(accept string) *restclient.Client {
	client := *t.Client
	if accept != "" {
		client.Accept = accept
	}
	if client.Accept == "" {
		client.Accept = defaultAccept
	}
	return &client
}

// parseVars turns name=value pairs into URL template variables.
func parseVars(pairs []string) (map[string]interface{}, error) {
	vars := make(map[string]interface{})
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("variable %q is not name=value", pair)
		}
		vars[parts[0]] = parts[1]
	}
	return vars, nil
}

// resource finds the target of a request: either url itself, or the
// resource called name in the root document at url.
func (t winkTool) resource(ctx context.Context, client *restclient.Client, url, name string, pairs []string) (*restclient.Resource, error) {
	if url == "" {
		return nil, errNoURL
	}
	if name == "" {
		return client.Resource(url)
	}
	vars, err := parseVars(pairs)
	if err != nil {
		return nil, err
	}
	// the root document is always fetched as structured data
	root, err := t.client("").Root(ctx, url)
	if err != nil {
		return nil, err
	}
	res, err := root.Named(name, vars)
	if err != nil {
		return nil, err
	}
	res.Client = client
	return res, nil
}

// printRoot writes a table of the resources in a root document.
func (t winkTool) printRoot(ctx context.Context, url string) error {
	root, err := t.client("").Root(ctx, url)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(t.Out, 0, 8, 2, ' ', 0)
	for _, res := range root.Representation.Resources {
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.Name, res.URL, strings.Join(res.Methods, ","))
	}
	return w.Flush()
}

// request performs one HTTP method and copies the response body to
// t.Out.
func (t winkTool) request(ctx context.Context, res *restclient.Resource, method string, in interface{}) error {
	var out []byte
	if err := res.Do(ctx, method, res.URL, in, &out); err != nil {
		return err
	}
	_, err := t.Out.Write(out)
	return err
}

// readInput reads a whole file, or standard input if filename is
// empty or "-".
func readInput(filename string) ([]byte, error) {
	if filename == "" || filename == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(filename)
}

// guessType picks a media type for a file from its extension.
func guessType(filename string) mediatype.MediaType {
	if ext := filepath.Ext(filename); ext != "" {
		if mt, err := mediatype.Parse(mime.TypeByExtension(ext)); err == nil {
			return mt
		}
	}
	return mediatype.OctetStream
}

var resourceFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "accept",
		Usage: "Accept: header to send",
	},
	cli.StringFlag{
		Name:  "named",
		Usage: "find the resource by name in the root document at URL",
	},
	cli.StringSliceFlag{
		Name:  "var",
		Usage: "name=value variable for a named resource's URL template",
	},
}

var rootCommand = cli.Command{
	Name:      "root",
	Usage:     "list the resources a service hosts",
	ArgsUsage: "URL",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return errNoURL
		}
		return wink.printRoot(context.Background(), c.Args().First())
	},
}

var getCommand = cli.Command{
	Name:      "get",
	Usage:     "GET a resource and print it",
	ArgsUsage: "URL",
	Flags:     resourceFlags,
	Action: func(c *cli.Context) error {
		ctx := context.Background()
		client := wink.client(c.String("accept"))
		res, err := wink.resource(ctx, client, c.Args().First(), c.String("named"), c.StringSlice("var"))
		if err != nil {
			return err
		}
		return wink.request(ctx, res, "GET", nil)
	},
}

var deleteCommand = cli.Command{
	Name:      "delete",
	Usage:     "DELETE a resource",
	ArgsUsage: "URL",
	Flags:     resourceFlags,
	Action: func(c *cli.Context) error {
		ctx := context.Background()
		client := wink.client(c.String("accept"))
		res, err := wink.resource(ctx, client, c.Args().First(), c.String("named"), c.StringSlice("var"))
		if err != nil {
			return err
		}
		return wink.request(ctx, res, "DELETE", nil)
	},
}

// sendCommand builds a command that sends a file with some method.
func sendCommand(name, usage string) cli.Command {
	flags := append([]cli.Flag{
		cli.GenericFlag{
			Name:  "content-type",
			Value: &mediaTypeValue{},
			Usage: "media type of the file (default: guessed from its name)",
		},
	}, resourceFlags...)
	return cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "URL [FILE]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			filename := c.Args().Get(1)
			body, err := readInput(filename)
			if err != nil {
				return err
			}
			client := wink.client(c.String("accept"))
			client.ContentType = guessType(filename)
			if v, ok := c.Generic("content-type").(*mediaTypeValue); ok && !v.MediaType.IsZero() {
				client.ContentType = v.MediaType
			}
			res, err := wink.resource(ctx, client, c.Args().First(), c.String("named"), c.StringSlice("var"))
			if err != nil {
				return err
			}
			return wink.request(ctx, res, strings.ToUpper(name), body)
		},
	}
}
