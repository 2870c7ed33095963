package validation

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"sample", false},
		{"uudised-2024_01", false},
		{"õpik", false},
		{"", true},
		{".", true},
		{"..", true},
		{".hidden", true},
		{"-flag", true},
		{"a/b", true},
		{`a\b`, true},
		{"tab\there", true},
		{strings.Repeat("x", MaxNameLength+1), true},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) error %v does not wrap ErrInvalidName", tt.name, err)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()

	got, err := SafeJoin(base, "texts/a.json")
	if err != nil {
		t.Fatalf("SafeJoin() error = %v", err)
	}
	if want := filepath.Join(base, "texts", "a.json"); got != want {
		t.Errorf("SafeJoin() = %q, want %q", got, want)
	}

	got, err = SafeJoin(base, "texts/../manifest.json")
	if err != nil {
		t.Fatalf("SafeJoin() error = %v", err)
	}
	if want := filepath.Join(base, "manifest.json"); got != want {
		t.Errorf("SafeJoin() = %q, want %q", got, want)
	}

	for _, bad := range []string{"", "..", "../x", "texts/../../x", "/etc/passwd"} {
		if _, err := SafeJoin(base, bad); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("SafeJoin(%q) error = %v, want ErrPathTraversal", bad, err)
		}
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("abcd"), 4)
	if err != nil || string(data) != "abcd" {
		t.Errorf("ReadLimited() = %q, %v", data, err)
	}
	if _, err := ReadLimited(strings.NewReader("abcde"), 4); !errors.Is(err, ErrTooLarge) {
		t.Errorf("ReadLimited() error = %v, want ErrTooLarge", err)
	}
}
