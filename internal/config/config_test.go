package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/annotext/core/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Storage.CacheSize != 64 {
		t.Errorf("CacheSize = %d, want 64", cfg.Storage.CacheSize)
	}
	if cfg.AttributeMapping.Elementary["lemma"] != "morph_analysis" {
		t.Errorf("lemma mapping = %q", cfg.AttributeMapping.Elementary["lemma"])
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotext.yaml")
	data := `
logging:
  level: debug
storage:
  path: /tmp/texts.db
attribute_mapping:
  elementary:
    ner: named_entities
regex_taggers:
  - output: numbers
    attributes: [kind]
    rules:
      - pattern: '\d+'
        priority: 1
        attributes: {kind: number}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Path != "/tmp/texts.db" || cfg.Storage.CacheSize != 64 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.AttributeMapping.Elementary["ner"] != "named_entities" {
		t.Errorf("ner mapping missing: %v", cfg.AttributeMapping.Elementary)
	}
	if cfg.AttributeMapping.Elementary["lemma"] != "morph_analysis" {
		t.Errorf("default lemma mapping lost: %v", cfg.AttributeMapping.Elementary)
	}
	if len(cfg.RegexTaggers) != 1 || cfg.RegexTaggers[0].Rules[0].Priority != 1 {
		t.Fatalf("RegexTaggers = %+v", cfg.RegexTaggers)
	}

	r, err := cfg.Resolver()
	if err != nil {
		t.Fatalf("Resolver: %v", err)
	}
	txt := cfg.NewText("Mul on 3 kassi ja 12 koera.")
	if err := r.Tag(context.Background(), txt, "numbers", "words"); err != nil {
		t.Fatalf("Tag: %v", err)
	}
	numbers, err := txt.Layer("numbers")
	if err != nil {
		t.Fatal(err)
	}
	if got := numbers.Texts(); len(got) != 2 || got[0] != "3" || got[1] != "12" {
		t.Errorf("numbers = %v", got)
	}
	if got := txt.AttributeMapping().Elementary["ner"]; got != "named_entities" {
		t.Errorf("text mapping ner = %q", got)
	}
}

func TestLoadEmptyPathAndFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg.Storage.Path != "annotext.db" {
		t.Errorf("Load(\"\") = %+v, %v", cfg, err)
	}
	cfg, err = Parse(nil, "empty.yaml")
	if err != nil || cfg.Logging.Level != "info" {
		t.Errorf("Parse(empty) = %+v, %v", cfg, err)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Load(missing) error = %v, want IOError", err)
	}

	tests := []struct {
		name   string
		data   string
		target error
	}{
		{"syntax", "logging: [", errors.ErrInvalidInput},
		{"unknown key", "colour: blue", errors.ErrInvalidInput},
		{"bad level", "logging: {level: loud}", errors.ErrInvalidInput},
		{"bad format", "logging: {format: xml}", errors.ErrInvalidInput},
		{"empty storage path", "storage: {path: ''}", errors.ErrInvalidInput},
		{"regex without output", "regex_taggers: [{rules: []}]", errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "test.yaml")
			if !errors.Is(err, tt.target) {
				t.Errorf("Parse() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestResolverRejectsBadRegex(t *testing.T) {
	cfg, err := Parse([]byte("regex_taggers: [{output: x, rules: [{pattern: '('}]}]"), "test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Resolver(); err == nil {
		t.Error("Resolver() with invalid pattern succeeded")
	}
}
