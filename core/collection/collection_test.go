package collection

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/text"
)

func wordsText(t *testing.T, s string) *text.Text {
	t.Helper()
	txt := text.New(s)
	words := text.MustLayer(text.Config{Name: "words", Attributes: []string{"len"}, Text: txt})
	start := 0
	for i, r := range []rune(s + " ") {
		if r == ' ' {
			if i > start {
				if _, err := words.Add(start, i, map[string]interface{}{"len": i - start}); err != nil {
					t.Fatalf("Add(%d, %d) failed: %v", start, i, err)
				}
			}
			start = i + 1
		}
	}
	if err := txt.AddLayer(words); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}
	return txt
}

func sampleCollection(t *testing.T) *Collection {
	t.Helper()
	c := New(nil)
	if err := c.Add("first", wordsText(t, "Tere hommikust")); err != nil {
		t.Fatalf("Add(first) failed: %v", err)
	}
	if err := c.Add("second", wordsText(t, "Head ööd")); err != nil {
		t.Fatalf("Add(second) failed: %v", err)
	}
	return c
}

func packed(t *testing.T, name string, comp Compression) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := sampleCollection(t).Pack(path, comp); err != nil {
		t.Fatalf("Pack(%q) failed: %v", comp, err)
	}
	return path
}

func TestAdd(t *testing.T) {
	c := sampleCollection(t)
	if names := c.Names(); !reflect.DeepEqual(names, []string{"first", "second"}) {
		t.Errorf("Names() = %q, want [first second]", names)
	}

	e := c.Manifest().Entry("second")
	if e == nil {
		t.Fatal("Entry(second) = nil")
	}
	if e.Path != "texts/second.json" {
		t.Errorf("Path = %q, want texts/second.json", e.Path)
	}
	if e.Length != 8 {
		t.Errorf("Length = %d, want 8", e.Length)
	}
	if !reflect.DeepEqual(e.Layers, []string{"words"}) {
		t.Errorf("Layers = %q, want [words]", e.Layers)
	}
	if len(e.SHA256) != 64 || len(e.BLAKE3) != 64 {
		t.Errorf("digests %q, %q are not 64 hex characters", e.SHA256, e.BLAKE3)
	}

	if err := c.Add("first", text.New("x")); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("duplicate Add error = %v, want already exists", err)
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := c.Add(bad, text.New("x")); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("Add(%q) error = %v, want invalid input", bad, err)
		}
	}
	if _, err := c.Text("missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Text(missing) error = %v, want not found", err)
	}
}

func TestPackUnpack(t *testing.T) {
	for _, comp := range []Compression{CompressionXZ, CompressionGzip} {
		t.Run(string(comp), func(t *testing.T) {
			c := sampleCollection(t)
			path := filepath.Join(t.TempDir(), "texts.tar")
			if err := c.Pack(path, comp); err != nil {
				t.Fatalf("Pack failed: %v", err)
			}

			if detected, err := DetectCompression(path); err != nil || detected != comp {
				t.Errorf("DetectCompression() = %q, %v, want %q", detected, err, comp)
			}

			m, err := ReadManifest(path)
			if err != nil {
				t.Fatalf("ReadManifest failed: %v", err)
			}
			if m.ID != c.Manifest().ID {
				t.Errorf("manifest ID = %q, want %q", m.ID, c.Manifest().ID)
			}
			if m.FormatVersion != FormatVersion {
				t.Errorf("FormatVersion = %q, want %q", m.FormatVersion, FormatVersion)
			}
			if len(m.Entries) != 2 {
				t.Errorf("manifest has %d entries, want 2", len(m.Entries))
			}

			got, err := Unpack(path, nil)
			if err != nil {
				t.Fatalf("Unpack failed: %v", err)
			}
			if !reflect.DeepEqual(got.Names(), c.Names()) {
				t.Errorf("Names() = %q, want %q", got.Names(), c.Names())
			}

			texts, err := got.Texts()
			if err != nil {
				t.Fatalf("Texts failed: %v", err)
			}
			if len(texts) != 2 {
				t.Fatalf("Texts() returned %d texts, want 2", len(texts))
			}
			if s := texts[1].String(); s != "Head ööd" {
				t.Errorf("second text = %q, want %q", s, "Head ööd")
			}

			want, err := c.Text("first")
			if err != nil {
				t.Fatalf("Text(first) failed: %v", err)
			}
			wl, _ := want.Layer("words")
			gl, err := texts[0].Layer("words")
			if err != nil {
				t.Fatalf("Layer(words) failed: %v", err)
			}
			if !wl.Equal(gl) {
				t.Error("words layer differs after Pack and Unpack")
			}
		})
	}
}

func TestPackDefaultsToXZ(t *testing.T) {
	path := packed(t, "texts.tar.xz", "")
	if comp, err := DetectCompression(path); err != nil || comp != CompressionXZ {
		t.Errorf("DetectCompression() = %q, %v, want xz", comp, err)
	}

	if err := sampleCollection(t).Pack(path, "zstd"); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Pack(zstd) error = %v, want unsupported", err)
	}
}

func TestExtract(t *testing.T) {
	path := packed(t, "texts.tar.gz", CompressionGzip)

	dir := t.TempDir()
	m, err := Extract(path, dir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(m.Entries) != 2 {
		t.Errorf("manifest has %d entries, want 2", len(m.Entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, "texts", "first.json"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "Tere hommikust") {
		t.Errorf("first.json does not contain the text: %s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
		t.Errorf("manifest not extracted: %v", err)
	}
}

func TestDetectCompressionRejectsPlainFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tar")
	if err := os.WriteFile(path, []byte("not an archive"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := DetectCompression(path); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("DetectCompression error = %v, want unsupported", err)
	}
	if _, err := Unpack(path, nil); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Unpack error = %v, want unsupported", err)
	}

	_, err := DetectCompression(filepath.Join(t.TempDir(), "missing"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("missing file error = %v, want IOError", err)
	}
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"format_version":"1.0.0","id":"x","entries":[{"name":"a"}]}`, false},
		{"not json", `{`, true},
		{"no version", `{"entries":[]}`, true},
		{"duplicate", `{"format_version":"1.0.0","entries":[{"name":"a"},{"name":"a"}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
