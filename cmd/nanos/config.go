package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/nanos/nanos"
)

const defaultConfigPath = ".nanos.yaml"

// Config holds CLI settings. Values come from the YAML config file and
// are overridden by command line flags.
type Config struct {
	Compact  bool     `yaml:"compact"`
	Redact   string   `yaml:"redact"`
	Hide     []string `yaml:"hide"`
	QJSON    bool     `yaml:"qjson"`
	CRC      bool     `yaml:"crc"`
	LogLevel string   `yaml:"log_level"`
}

// loadConfig reads path. A missing file is only an error when path is not
// the default location.
func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if _, err := cfg.emitOptions(); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags present in opts.
func (c *Config) applyFlags(opts docopt.Opts) error {
	if v, _ := opts.Bool("--compact"); v {
		c.Compact = true
	}
	if v, _ := opts.Bool("--qjson"); v {
		c.QJSON = true
	}
	if v, _ := opts.Bool("--crc"); v {
		c.CRC = true
	}
	if v, ok := opts["--redact"].(string); ok {
		c.Redact = v
	}
	if v, ok := opts["--hide"].(string); ok {
		c.Hide = nil
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Hide = append(c.Hide, k)
			}
		}
	}
	if v, ok := opts["--log-level"].(string); ok {
		c.LogLevel = v
	}
	_, err := c.emitOptions()
	return err
}

// emitOptions maps the config onto SLID emitter options. An unset redact
// mode omits hidden entries.
func (c Config) emitOptions() (nanos.EmitOptions, error) {
	opts := nanos.EmitOptions{Compact: c.Compact, Redact: nanos.RedactOmit}
	if c.Redact != "" {
		mode, err := nanos.ParseRedactMode(c.Redact)
		if err != nil {
			return opts, err
		}
		opts.Redact = mode
	}
	return opts, nil
}

// hide redacts the configured named keys in doc and every nested container.
func (c Config) hide(doc *nanos.Container) error {
	if len(c.Hide) == 0 {
		return nil
	}
	keys := make([]any, 0, len(c.Hide))
	for _, k := range c.Hide {
		if !nanos.IsIndexKey(k) {
			keys = append(keys, k)
		}
	}
	return hideKeys(doc, keys)
}

func hideKeys(doc *nanos.Container, keys []any) error {
	if len(keys) == 0 {
		return nil
	}
	if err := doc.Redact(keys...); err != nil {
		return err
	}
	for _, v := range doc.All() {
		if child, ok := v.(*nanos.Container); ok {
			if err := hideKeys(child, keys); err != nil {
				return err
			}
		}
	}
	return nil
}
