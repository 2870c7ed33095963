package cas

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// HashResult contains both hashes of a stored blob.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

type blake3Pointer struct {
	SHA256 string `json:"sha256"`
}

// StoreWithBlake3 stores data and records a pointer from its BLAKE3 hash to
// its SHA-256 hash.
func (s *Store) StoreWithBlake3(data []byte) (*HashResult, error) {
	sha, err := s.Store(data)
	if err != nil {
		return nil, err
	}
	b3 := Blake3Hash(data)
	path := s.pointerPath(b3)
	if _, err := os.Stat(path); err != nil {
		pointer, err := json.Marshal(blake3Pointer{SHA256: sha})
		if err != nil {
			return nil, errors.Wrap(err, "marshal blake3 pointer")
		}
		if err := writeAtomic(path, pointer); err != nil {
			return nil, err
		}
	}
	return &HashResult{SHA256: sha, BLAKE3: b3}, nil
}

// LookupBlake3 returns the SHA-256 hash a BLAKE3 hash points to.
func (s *Store) LookupBlake3(hash string) (string, error) {
	if err := validateHash(hash); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.pointerPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("blake3 pointer", hash)
		}
		return "", &errors.IOError{Operation: "read", Path: s.pointerPath(hash), Err: err}
	}
	var pointer blake3Pointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return "", errors.NewParse("json", s.pointerPath(hash), err.Error())
	}
	return pointer.SHA256, nil
}

// RetrieveByBlake3 reads a blob through its BLAKE3 pointer.
func (s *Store) RetrieveByBlake3(hash string) ([]byte, error) {
	sha, err := s.LookupBlake3(hash)
	if err != nil {
		return nil, err
	}
	return s.Retrieve(sha)
}

func (s *Store) pointerPath(hash string) string {
	return filepath.Join(s.root, "blobs", "blake3", hash[:2], hash+".json")
}

// Blake3Hash computes the BLAKE3 hash of data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
