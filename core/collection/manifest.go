package collection

import (
	"encoding/json"

	"github.com/FocuswithJustin/annotext/core/errors"
)

// FormatVersion is the current collection archive format version.
const FormatVersion = "1.0.0"

// ManifestName is the archive path of the manifest.
const ManifestName = "manifest.json"

// Manifest describes the texts of a collection archive.
type Manifest struct {
	FormatVersion string   `json:"format_version"`
	ID            string   `json:"id"`
	CreatedAt     string   `json:"created_at"`
	Tool          ToolInfo `json:"tool"`
	Entries       []*Entry `json:"entries"`
}

// ToolInfo describes the tool that wrote the archive.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry describes one serialized text in the archive.
type Entry struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	SHA256    string   `json:"sha256"`
	BLAKE3    string   `json:"blake3"`
	SizeBytes int64    `json:"size_bytes"`
	Length    int      `json:"length"`
	Layers    []string `json:"layers"`
}

// Entry returns the entry called name, or nil.
func (m *Manifest) Entry(name string) *Entry {
	for _, e := range m.Entries {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// ToJSON serializes the manifest with indentation.
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest parses and checks a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewParse("json", ManifestName, err.Error())
	}
	if m.FormatVersion == "" {
		return nil, errors.NewParse("json", ManifestName, "missing format_version")
	}
	seen := map[string]bool{}
	for _, e := range m.Entries {
		if e.Name == "" || seen[e.Name] {
			return nil, errors.NewParse("json", ManifestName, "empty or duplicate entry name "+e.Name)
		}
		seen[e.Name] = true
	}
	return &m, nil
}
