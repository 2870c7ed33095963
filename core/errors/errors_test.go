package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "layer", ID: "words"},
			wantMsg:  "layer not found: words",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "text"},
			wantMsg:  "text not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "blob", ID: "abc", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &ValidationError{Field: "attributes", Message: "must not contain \"text\""},
			wantMsg: "validation failed for attributes: must not contain \"text\"",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Errorf("errors.Is(%v, ErrInvalidInput) = false", tt.err)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := NewIO("read", "/tmp/x.json", underlying)
	if got, want := err.Error(), "failed to read /tmp/x.json: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	noPath := &IOError{Operation: "write", Err: underlying}
	if got, want := noPath.Error(), "failed to write: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("span literal", "", "unexpected token")
	if got, want := err.Error(), "failed to parse span literal: unexpected token"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}

	withPath := NewParse("JSON", "doc.json", "bad")
	if got, want := withPath.Error(), "failed to parse JSON at doc.json: bad"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("merge", "parent layers")
	if got, want := err.Error(), "unsupported merge: parent layers"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
	if got, want := (&UnsupportedError{Feature: "format"}).Error(), "unsupported format"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStructuralError(t *testing.T) {
	err := NewStructural("add_annotation", "words", "layer is not ambiguous, span %s already annotated", "(0, 4)")
	want := `add_annotation on layer "words": layer is not ambiguous, span (0, 4) already annotated`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrStructural) {
		t.Error("StructuralError should unwrap to ErrStructural")
	}

	noLayer := &StructuralError{Op: "merge_layers", Message: "no layers"}
	if got, want := noLayer.Error(), "merge_layers: no layers"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAttributeError(t *testing.T) {
	err := NewAttribute("lemma", `layer "words"`, "layer is empty")
	want := `attribute "lemma" not resolvable on layer "words": layer is empty`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrAttribute) {
		t.Error("AttributeError should unwrap to ErrAttribute")
	}

	var ae *AttributeError
	if !As(fmt.Errorf("wrapped: %w", err), &ae) {
		t.Fatal("As() failed to find AttributeError")
	}
	if ae.Name != "lemma" {
		t.Errorf("Name = %q, want %q", ae.Name, "lemma")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	base := errors.New("base")
	wrapped := Wrap(base, "context")
	if got, want := wrapped.Error(), "context: base"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(wrapped, base) {
		t.Error("Is(wrapped, base) = false")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "layer %s", "words") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	wrapped := Wrapf(errors.New("base"), "layer %s", "words")
	if got, want := wrapped.Error(), "layer words: base"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
