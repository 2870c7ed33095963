// Package validation checks names and paths that come from archives and
// command-line input before they touch the file system.
package validation

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits applied to archive contents.
const (
	// MaxEntrySize is the largest archive entry read into memory (256 MB).
	MaxEntrySize = 256 << 20
	// MaxNameLength is the longest accepted text name in bytes.
	MaxNameLength = 200
)

var (
	ErrInvalidName   = errors.New("invalid name")
	ErrPathTraversal = errors.New("path traversal detected")
	ErrTooLarge      = errors.New("entry too large")
)

// ValidateName checks that name can be used as a single file name: it must
// be non-empty, must not contain separators or control characters and must
// not start with a dot or a hyphen.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: must not start with %q", ErrInvalidName, name[:1])
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidName)
		}
	}
	return nil
}

// SafeJoin joins the slash-separated relative path rel onto base and fails
// if the result would leave base.
func SafeJoin(base, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return filepath.Join(base, clean), nil
}

// ReadLimited reads r to the end, failing once more than limit bytes arrive.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
