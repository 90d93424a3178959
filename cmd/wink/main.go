// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package wink is a command-line client for REST services.  It sends
// requests through the same entity providers the server uses, and can
// also split and join multipart messages offline.
//
//     wink root http://localhost:5980/
//     wink get -accept application/x-yaml http://localhost:5980/note/a
//     wink post -content-type application/json http://localhost:5980/note note.json
//     wink join a.txt b.json > message
//     wink split -content-type "multipart/mixed; boundary=xyz" -dir out message
package main

import (
	"context"
	"github.com/diffeo/go-wink/config"
	"github.com/diffeo/go-wink/entity"
	"github.com/diffeo/go-wink/mediatype"
	"github.com/diffeo/go-wink/provider"
	"github.com/diffeo/go-wink/restclient"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"io"
	"os"
)

type winkTool struct {
	Providers *provider.Registry
	Client    *restclient.Client
	Out       io.Writer
}

var wink winkTool

// mediaTypeValue is a cli.Generic flag holding a media type.
type mediaTypeValue struct {
	MediaType mediatype.MediaType
}

func (v *mediaTypeValue) Set(s string) error {
	mt, err := mediatype.Parse(s)
	if err != nil {
		return err
	}
	v.MediaType = mt
	return nil
}

func (v *mediaTypeValue) String() string {
	if v.MediaType.IsZero() {
		return ""
	}
	return v.MediaType.String()
}

// newTool creates the providers and client, with settings from cfg.
func newTool(cfg config.Config, out io.Writer) winkTool {
	providers := provider.NewRegistry(provider.NewValidator())
	entity.Register(providers)
	client := restclient.New(providers)
	client.Accept = cfg.Accept
	return winkTool{
		Providers: providers,
		Client:    client,
		Out:       out,
	}
}

// entityContext returns a context carrying the provider registry, for
// reading and writing entities outside of a request.
func (t winkTool) entityContext() context.Context {
	return provider.NewContext(context.Background(), t.Providers)
}

func main() {
	app := cli.NewApp()
	app.Name = "wink"
	app.Usage = "talk to REST services and handle multipart messages"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "configuration YAML file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "logging level (overrides the configuration)",
		},
	}
	app.Commands = []cli.Command{
		rootCommand,
		getCommand,
		sendCommand("post", "POST a file and print the response"),
		sendCommand("put", "PUT a file and print the response"),
		deleteCommand,
		splitCommand,
		joinCommand,
	}
	app.Before = func(c *cli.Context) error {
		cfg := config.Default()
		if filename := c.String("config"); filename != "" {
			var err error
			cfg, err = config.Load(filename)
			if err != nil {
				return err
			}
		}
		if level := c.String("log-level"); level != "" {
			cfg.LogLevel = level
		}
		if err := cfg.ConfigureLogger(logrus.StandardLogger()); err != nil {
			return err
		}
		wink = newTool(cfg, os.Stdout)
		return nil
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("wink failed")
	}
}
