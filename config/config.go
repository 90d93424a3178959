// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config loads the settings for the wink daemon and tools from
// a YAML file.  The file is read into a generic map, and then decoded
// into a Config with weakly-typed conversions, so that "true", "1",
// and true all set a boolean.  Keys the Config does not know about are
// an error.
//
// A typical file looks like:
//
//     http: ":5980"
//     log_level: debug
//     log_requests: true
//     priorities:
//       main.shoutingWriter: 0.1
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
	"io/ioutil"
	"reflect"
)

// Config holds the settings for a wink program.
type Config struct {
	// HTTP is the [ip]:port to serve HTTP on.
	HTTP string `mapstructure:"http"`

	// LogLevel is the logrus level name of the standard logger.
	LogLevel string `mapstructure:"log_level"`

	// LogRequests logs every HTTP request, whatever the log level.
	LogRequests bool `mapstructure:"log_requests"`

	// Metrics serves Prometheus metrics on /metrics.
	Metrics bool `mapstructure:"metrics"`

	// Accept is the Accept: header clients send, if non-empty.
	Accept string `mapstructure:"accept"`

	// Priorities overrides the registration priority of provider
	// and resource types, by Go type name.
	Priorities PriorityOverride `mapstructure:"priorities"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		HTTP:       ":5980",
		LogLevel:   "info",
		Metrics:    true,
		Priorities: PriorityOverride{},
	}
}

// Load reads a YAML configuration file, starting from Default().
func Load(filename string) (Config, error) {
	bytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}
	return Parse(bytes)
}

// Parse decodes YAML configuration text, starting from Default().
func Parse(bytes []byte) (Config, error) {
	var raw map[string]interface{}
	config := Default()
	err := yaml.Unmarshal(bytes, &raw)
	if err == nil {
		err = Decode(raw, &config)
	}
	return config, err
}

// Decode decodes a generic map into an existing configuration.  Only
// the keys present in raw are changed.
func Decode(raw map[string]interface{}, config *Config) error {
	decoderConfig := mapstructure.DecoderConfig{
		DecodeHook:       DecodeBytesAsString,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           config,
	}
	decoder, err := mapstructure.NewDecoder(&decoderConfig)
	if err == nil {
		err = decoder.Decode(raw)
	}
	return err
}

// DecodeBytesAsString is a mapstructure decode hook that accepts a
// byte slice where a string is expected.
func DecodeBytesAsString(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() == reflect.String && from.Kind() == reflect.Slice && from.Elem().Kind() == reflect.Uint8 {
		return string(data.([]uint8)), nil
	}
	return data, nil
}

// Level returns the configured log level.
func (c Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// ConfigureLogger sets the level of logger from the configuration.
func (c Config) ConfigureLogger(logger *logrus.Logger) error {
	level, err := c.Level()
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// RequestLogger returns the logger HTTP requests should be logged
// to.  Requests are logged at debug level; if LogRequests is set, this
// is a copy of base that logs debug messages, otherwise it is base.
func (c Config) RequestLogger(base *logrus.Logger) *logrus.Logger {
	if !c.LogRequests {
		return base
	}
	return &logrus.Logger{
		Out:       base.Out,
		Formatter: base.Formatter,
		Hooks:     base.Hooks,
		Level:     logrus.DebugLevel,
		ExitFunc:  base.ExitFunc,
	}
}
