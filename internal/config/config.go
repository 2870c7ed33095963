// Package config loads the annotext YAML configuration.
//
//	logging:
//	  level: info
//	  format: text
//	storage:
//	  path: annotext.db
//	  cache_size: 64
//	attribute_mapping:
//	  elementary: {lemma: morph_analysis}
//	  enveloping: {lemma: morph_analysis}
//	regex_taggers:
//	  - output: numbers
//	    rules: [{pattern: '\d+'}]
//
// Keys left out keep their defaults; attribute mapping entries are merged
// into the default mapping.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/tagger"
	"github.com/FocuswithJustin/annotext/core/taggers"
	"github.com/FocuswithJustin/annotext/core/text"
	"github.com/FocuswithJustin/annotext/internal/logging"
)

// Config is the full configuration.
type Config struct {
	Logging          LoggingConfig         `yaml:"logging"`
	Storage          StorageConfig         `yaml:"storage"`
	AttributeMapping text.AttributeMapping `yaml:"attribute_mapping"`
	RegexTaggers     []taggers.RegexConfig `yaml:"regex_taggers,omitempty"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig configures the SQLite text store.
type StorageConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging:          LoggingConfig{Level: "info", Format: "text"},
		Storage:          StorageConfig{Path: "annotext.db", CacheSize: 64},
		AttributeMapping: text.DefaultAttributeMapping(),
	}
}

// Load reads the configuration at path on top of the defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.IOError{Operation: "read", Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes YAML configuration data on top of the defaults.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.NewParse("YAML", path, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewValidation("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return errors.NewValidation("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	if c.Storage.Path == "" {
		return errors.NewValidation("storage.path", "must not be empty")
	}
	for i, rc := range c.RegexTaggers {
		if rc.Output == "" {
			return errors.NewValidation(fmt.Sprintf("regex_taggers[%d].output", i), "must not be empty")
		}
	}
	return nil
}

// InitLogging configures the global logger from the logging section.
func (c *Config) InitLogging() {
	logging.InitLogger(logging.ParseLevel(c.Logging.Level), logging.ParseFormat(c.Logging.Format))
}

// TextOptions returns the options every text created under this
// configuration gets.
func (c *Config) TextOptions() []text.Option {
	return []text.Option{text.WithAttributeMapping(c.AttributeMapping)}
}

// NewText creates a text with the configured attribute mapping.
func (c *Config) NewText(s string) *text.Text {
	return text.New(s, c.TextOptions()...)
}

// Resolver returns a resolver with the reference taggers and the configured
// regex taggers.
func (c *Config) Resolver() (*tagger.Resolver, error) {
	r := tagger.DefaultResolver()
	for _, rc := range c.RegexTaggers {
		tg, err := taggers.NewRegex(rc)
		if err != nil {
			return nil, errors.Wrapf(err, "regex tagger %q", rc.Output)
		}
		if err := r.Register(tg); err != nil {
			return nil, err
		}
	}
	return r, nil
}
