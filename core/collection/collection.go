// Package collection bundles serialized texts into a single tar archive
// compressed with xz or gzip. The archive holds manifest.json, listing every
// text with its SHA-256 and BLAKE3 hashes, and one JSON file per text under
// texts/.
package collection

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/annotext/core/cas"
	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/layerdict"
	"github.com/FocuswithJustin/annotext/core/text"
	"github.com/FocuswithJustin/annotext/internal/logging"
	"github.com/FocuswithJustin/annotext/internal/validation"
)

// Compression selects the archive compression.
type Compression string

const (
	CompressionXZ   Compression = "xz"
	CompressionGzip Compression = "gzip"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Collection is an in-memory set of named texts with their serialized form.
type Collection struct {
	manifest *Manifest
	blobs    map[string][]byte
	codec    *layerdict.Codec
}

// New creates an empty collection. A nil codec uses the default
// serialisation modules.
func New(codec *layerdict.Codec) *Collection {
	if codec == nil {
		codec = layerdict.NewCodec()
	}
	return &Collection{
		manifest: &Manifest{
			FormatVersion: FormatVersion,
			ID:            uuid.NewString(),
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
			Tool:          ToolInfo{Name: "annotext", Version: FormatVersion},
			Entries:       []*Entry{},
		},
		blobs: map[string][]byte{},
		codec: codec,
	}
}

// Manifest returns the collection manifest.
func (c *Collection) Manifest() *Manifest { return c.manifest }

// Len returns the number of texts.
func (c *Collection) Len() int { return len(c.manifest.Entries) }

// Names returns the text names in insertion order.
func (c *Collection) Names() []string {
	names := make([]string, len(c.manifest.Entries))
	for i, e := range c.manifest.Entries {
		names[i] = e.Name
	}
	return names
}

// Add serializes t and adds it under name.
func (c *Collection) Add(name string, t *text.Text) error {
	if err := validation.ValidateName(name); err != nil {
		return &errors.ValidationError{Field: "name", Value: name, Message: err.Error()}
	}
	if c.manifest.Entry(name) != nil {
		return &errors.ValidationError{Field: "name", Value: name, Message: "duplicate text name", Err: errors.ErrAlreadyExists}
	}
	data, err := c.codec.ToJSON(t)
	if err != nil {
		return err
	}
	c.manifest.Entries = append(c.manifest.Entries, &Entry{
		Name:      name,
		Path:      "texts/" + name + ".json",
		SHA256:    cas.Hash(data),
		BLAKE3:    cas.Blake3Hash(data),
		SizeBytes: int64(len(data)),
		Length:    utf8.RuneCountInString(t.String()),
		Layers:    t.LayerNames(),
	})
	c.blobs[name] = data
	return nil
}

// Text decodes the text called name.
func (c *Collection) Text(name string) (*text.Text, error) {
	data, ok := c.blobs[name]
	if !ok {
		return nil, errors.NewNotFound("text", name)
	}
	return c.codec.FromJSON(data)
}

// Texts decodes all texts in insertion order.
func (c *Collection) Texts() ([]*text.Text, error) {
	out := make([]*text.Text, 0, c.Len())
	for _, name := range c.Names() {
		t, err := c.Text(name)
		if err != nil {
			return nil, errors.Wrapf(err, "text %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// Pack writes the collection to path.
func (c *Collection) Pack(path string, comp Compression) error {
	if comp == "" {
		comp = CompressionXZ
	}
	var buf bytes.Buffer
	if err := c.writeTar(&buf); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return &errors.IOError{Operation: "create", Path: path, Err: err}
	}
	defer f.Close()

	var w io.WriteCloser
	switch comp {
	case CompressionXZ:
		w, err = xz.NewWriter(f)
		if err != nil {
			return errors.Wrap(err, "xz writer")
		}
	case CompressionGzip:
		w = gzip.NewWriter(f)
	default:
		return errors.NewUnsupported("compression "+string(comp), "use xz or gzip")
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return &errors.IOError{Operation: "write", Path: path, Err: err}
	}
	if err := w.Close(); err != nil {
		return &errors.IOError{Operation: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &errors.IOError{Operation: "close", Path: path, Err: err}
	}
	logging.CollectionEvent("pack", path, c.Len(), "compression", string(comp), "id", c.manifest.ID)
	return nil
}

// writeTar writes the manifest followed by the texts. Timestamps are the
// manifest creation time so the archive content is reproducible.
func (c *Collection) writeTar(w io.Writer) error {
	modTime, err := time.Parse(time.RFC3339, c.manifest.CreatedAt)
	if err != nil {
		modTime = time.Unix(0, 0)
	}
	tw := tar.NewWriter(w)
	write := func(name string, data []byte) error {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: modTime,
			Format:  tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err := tw.Write(data)
		return err
	}

	manifest, err := c.manifest.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	if err := write(ManifestName, manifest); err != nil {
		return err
	}
	for _, e := range c.manifest.Entries {
		if err := write(e.Path, c.blobs[e.Name]); err != nil {
			return err
		}
	}
	return tw.Close()
}

// DetectCompression reads the first bytes of path and reports its
// compression.
func DetectCompression(path string) (Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &errors.IOError{Operation: "open", Path: path, Err: err}
	}
	defer f.Close()

	head := make([]byte, len(xzMagic))
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, xzMagic):
		return CompressionXZ, nil
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip, nil
	}
	return "", errors.NewUnsupported("archive "+filepath.Base(path), "not xz or gzip compressed")
}

// visit calls fn for every file in the archive at path.
func visit(path string, fn func(hdr *tar.Header, r io.Reader) error) error {
	comp, err := DetectCompression(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return &errors.IOError{Operation: "open", Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader
	switch comp {
	case CompressionXZ:
		xr, err := xz.NewReader(f)
		if err != nil {
			return errors.NewParse("xz", path, err.Error())
		}
		r = xr
	case CompressionGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return errors.NewParse("gzip", path, err.Error())
		}
		defer gr.Close()
		r = gr
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.NewParse("tar", path, err.Error())
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

// ReadManifest reads only the manifest of the archive at path.
func ReadManifest(path string) (*Manifest, error) {
	var m *Manifest
	err := visit(path, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Name != ManifestName || m != nil {
			return nil
		}
		data, err := validation.ReadLimited(r, validation.MaxEntrySize)
		if err != nil {
			return err
		}
		m, err = ParseManifest(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewParse("collection", path, "missing "+ManifestName)
	}
	return m, nil
}

// Unpack reads the archive at path and verifies every text against the
// manifest hashes.
func Unpack(path string, codec *layerdict.Codec) (*Collection, error) {
	files := map[string][]byte{}
	err := visit(path, func(hdr *tar.Header, r io.Reader) error {
		data, err := validation.ReadLimited(r, validation.MaxEntrySize)
		if err != nil {
			return errors.NewParse("collection", path, hdr.Name+": "+err.Error())
		}
		files[hdr.Name] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	data, ok := files[ManifestName]
	if !ok {
		return nil, errors.NewParse("collection", path, "missing "+ManifestName)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	c := New(codec)
	c.manifest = m
	for _, e := range m.Entries {
		blob, ok := files[e.Path]
		if !ok {
			return nil, errors.NewParse("collection", path, "missing "+e.Path)
		}
		if cas.Hash(blob) != e.SHA256 || cas.Blake3Hash(blob) != e.BLAKE3 {
			return nil, errors.NewParse("collection", path, "hash mismatch for "+e.Path)
		}
		c.blobs[e.Name] = blob
	}
	logging.CollectionEvent("unpack", path, c.Len(), "id", m.ID)
	return c, nil
}

// Extract unpacks the archive at path into dir, writing the manifest and
// one JSON file per text.
func Extract(path, dir string) (*Manifest, error) {
	c, err := Unpack(path, nil)
	if err != nil {
		return nil, err
	}
	manifest, err := c.manifest.ToJSON()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &errors.IOError{Operation: "mkdir", Path: dir, Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), manifest, 0644); err != nil {
		return nil, &errors.IOError{Operation: "write", Path: dir, Err: err}
	}
	for _, e := range c.manifest.Entries {
		if err := validation.ValidateName(e.Name); err != nil {
			return nil, errors.NewParse("collection", path, "entry "+e.Name+": "+err.Error())
		}
		target, err := validation.SafeJoin(dir, e.Path)
		if err != nil {
			return nil, errors.NewParse("collection", path, err.Error())
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, &errors.IOError{Operation: "mkdir", Path: target, Err: err}
		}
		if err := os.WriteFile(target, c.blobs[e.Name], 0644); err != nil {
			return nil, &errors.IOError{Operation: "write", Path: target, Err: err}
		}
	}
	return c.manifest, nil
}
