// Package cas stores serialized texts as content-addressed blobs.
// Blobs are keyed by their SHA-256 hash, with BLAKE3 pointer files as a
// secondary index, so identical annotations are stored once and can be
// verified on read.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/layerdict"
	"github.com/FocuswithJustin/annotext/core/text"
)

// hashPattern matches a lowercase 256-bit hex digest.
var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store is a content-addressed blob store rooted at a directory.
type Store struct {
	root  string
	codec *layerdict.Codec
}

// NewStore creates a store at root, creating the blob directories when
// needed. A nil codec uses the default serialisation modules.
func NewStore(root string, codec *layerdict.Codec) (*Store, error) {
	for _, dir := range []string{"sha256", "blake3"} {
		if err := os.MkdirAll(filepath.Join(root, "blobs", dir), 0755); err != nil {
			return nil, &errors.IOError{Operation: "mkdir", Path: root, Err: err}
		}
	}
	if codec == nil {
		codec = layerdict.NewCodec()
	}
	return &Store{root: root, codec: codec}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// Store writes data and returns its SHA-256 hash. Storing existing content
// is a no-op.
func (s *Store) Store(data []byte) (string, error) {
	hash := Hash(data)
	path := s.pathForHash(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return hash, nil
}

// Retrieve reads the blob with the given SHA-256 hash and verifies it.
func (s *Store) Retrieve(hash string) ([]byte, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("blob", hash)
		}
		return nil, &errors.IOError{Operation: "read", Path: s.pathForHash(hash), Err: err}
	}
	if got := Hash(data); got != hash {
		return nil, errors.NewParse("blob", hash, "content hash mismatch: "+got)
	}
	return data, nil
}

// Exists reports whether a blob with the given hash is stored.
func (s *Store) Exists(hash string) bool {
	if validateHash(hash) != nil {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// Delete removes a blob. BLAKE3 pointers to it are left dangling and
// resolve to a not found error.
func (s *Store) Delete(hash string) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	if err := os.Remove(s.pathForHash(hash)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFound("blob", hash)
		}
		return &errors.IOError{Operation: "remove", Path: s.pathForHash(hash), Err: err}
	}
	return nil
}

// List returns the hashes of all stored blobs, sorted.
func (s *Store) List() ([]string, error) {
	var hashes []string
	dir := filepath.Join(s.root, "blobs", "sha256")
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && hashPattern.MatchString(d.Name()) {
			hashes = append(hashes, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, &errors.IOError{Operation: "list", Path: dir, Err: err}
	}
	sort.Strings(hashes)
	return hashes, nil
}

// PutText serializes t and stores it, returning both hashes.
func (s *Store) PutText(t *text.Text) (*HashResult, error) {
	data, err := s.codec.ToJSON(t)
	if err != nil {
		return nil, err
	}
	return s.StoreWithBlake3(data)
}

// GetText loads and decodes the text stored under a SHA-256 hash.
func (s *Store) GetText(hash string) (*text.Text, error) {
	data, err := s.Retrieve(hash)
	if err != nil {
		return nil, err
	}
	return s.codec.FromJSON(data)
}

func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "sha256", hash[:2], hash)
}

func validateHash(hash string) error {
	if !hashPattern.MatchString(hash) {
		return &errors.ValidationError{Field: "hash", Value: hash, Message: "not a 64 character lowercase hex digest"}
	}
	return nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &errors.IOError{Operation: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &errors.IOError{Operation: "create", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &errors.IOError{Operation: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &errors.IOError{Operation: "close", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &errors.IOError{Operation: "rename", Path: path, Err: err}
	}
	return nil
}

// Hash computes the SHA-256 hash of data without storing it.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ShortHash returns the first 12 characters of a hash for display.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
