// Package storage keeps texts and their layers in a SQLite database.
//
// Every text gets a UUID. Layers are stored one row each in their record
// form, so a text can be loaded with only some of its layers and new layers
// can be attached to a stored text later. Decoded texts are cached by the
// content hash of their serialized form.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/annotext/core/cache"
	"github.com/FocuswithJustin/annotext/core/cas"
	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/layerdict"
	"github.com/FocuswithJustin/annotext/core/sqlite"
	"github.com/FocuswithJustin/annotext/core/text"
	"github.com/FocuswithJustin/annotext/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS texts (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	body       TEXT NOT NULL,
	meta       TEXT NOT NULL,
	length     INTEGER NOT NULL,
	hash       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS layers (
	text_id    TEXT NOT NULL REFERENCES texts(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	dependency TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (text_id, name)
);
`

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the codec used to serialize layers.
func WithCodec(c *layerdict.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithCacheSize sets how many decoded texts are cached. Zero disables the
// cache limit; a negative size disables caching.
func WithCacheSize(n int) Option {
	return func(s *Store) { s.cacheSize = n }
}

// WithTextOptions sets options applied to every text the store decodes,
// such as text.WithAttributeMapping.
func WithTextOptions(opts ...text.Option) Option {
	return func(s *Store) { s.textOpts = append(s.textOpts, opts...) }
}

// Store is a SQLite backed text store. It is safe for concurrent use.
type Store struct {
	db        *sql.DB
	path      string
	codec     *layerdict.Codec
	cacheSize int
	cache     *cache.TextCache
	textOpts  []text.Option
	now       func() time.Time
}

// TextInfo summarizes a stored text.
type TextInfo struct {
	ID        string    `json:"id"`
	Length    int       `json:"length"`
	Hash      string    `json:"hash"`
	Layers    []string  `json:"layers"`
	CreatedAt time.Time `json:"created_at"`
}

// Open opens or creates the store at path. Use ":memory:" for a private
// in-memory store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, cacheSize: cache.DefaultConfig().MaxSize, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		s.codec = layerdict.NewCodec()
	}
	if s.cacheSize >= 0 {
		s.cache = cache.NewTextCache(cache.Config{MaxSize: s.cacheSize})
	}

	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, &errors.IOError{Operation: "open", Path: path, Err: err}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &errors.IOError{Operation: "migrate", Path: path, Err: err}
	}
	s.db = db
	logging.StorageEvent(ctx, "open", path, "driver", sqlite.DriverType())
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CacheStats returns statistics of the decoded text cache.
func (s *Store) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}

// Insert stores t with all of its layers and returns the new text ID.
func (s *Store) Insert(ctx context.Context, t *text.Text) (string, error) {
	d, err := s.codec.TextToDict(t)
	if err != nil {
		return "", err
	}
	hash, err := dictHash(d)
	if err != nil {
		return "", err
	}
	meta, err := json.Marshal(d.Meta)
	if err != nil {
		return "", errors.Wrap(err, "encode meta")
	}

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO texts (id, body, meta, length, hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, d.Text, string(meta), utf8.RuneCountInString(d.Text), hash, s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", errors.Wrap(err, "insert text")
	}
	for _, ld := range d.Layers {
		if err := insertLayer(ctx, tx, id, ld); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	if s.cache != nil {
		s.cache.Put(hash, t)
	}
	logging.StorageEvent(ctx, "insert", id, "layers", len(d.Layers), "hash", cas.ShortHash(hash))
	return id, nil
}

func insertLayer(ctx context.Context, tx *sql.Tx, id string, ld *layerdict.LayerDict) error {
	data, err := json.Marshal(ld)
	if err != nil {
		return errors.Wrapf(err, "encode layer %q", ld.Name)
	}
	dep := ""
	switch {
	case ld.Parent != nil:
		dep = *ld.Parent
	case ld.Enveloping != nil:
		dep = *ld.Enveloping
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO layers (text_id, name, dependency, data) VALUES (?, ?, ?, ?)`,
		id, ld.Name, dep, string(data),
	); err != nil {
		return errors.Wrapf(err, "insert layer %q", ld.Name)
	}
	return nil
}

// dictHash hashes the serialized form of a text.
func dictHash(d *layerdict.TextDict) (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "encode text")
	}
	return cas.Hash(data), nil
}

type textRow struct {
	body string
	meta map[string]interface{}
	hash string
}

func (s *Store) loadRow(ctx context.Context, id string) (*textRow, error) {
	var r textRow
	var meta string
	err := s.db.QueryRowContext(ctx, `SELECT body, meta, hash FROM texts WHERE id = ?`, id).
		Scan(&r.body, &meta, &r.hash)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("text", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &r.meta); err != nil {
		return nil, errors.NewParse("json", id, "meta: "+err.Error())
	}
	return &r, nil
}

// Get loads a text. With no layer names all layers are loaded; otherwise
// only the named layers and the layers they depend on.
func (s *Store) Get(ctx context.Context, id string, layers ...string) (*text.Text, error) {
	row, err := s.loadRow(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(layers) == 0 && s.cache != nil {
		if t, ok := s.cache.Get(row.hash); ok {
			logging.StorageEvent(ctx, "get", id, "cached", true)
			return t, nil
		}
	}

	deps, err := s.dependencies(ctx, id)
	if err != nil {
		return nil, err
	}
	var names []string
	if len(layers) == 0 {
		for name := range deps {
			names = append(names, name)
		}
	} else {
		names, err = closure(deps, layers)
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(names)

	d := &layerdict.TextDict{Text: row.body, Meta: row.meta}
	for _, name := range names {
		var data string
		if err := s.db.QueryRowContext(ctx,
			`SELECT data FROM layers WHERE text_id = ? AND name = ?`, id, name,
		).Scan(&data); err != nil {
			return nil, errors.Wrapf(err, "load layer %q", name)
		}
		var ld layerdict.LayerDict
		if err := json.Unmarshal([]byte(data), &ld); err != nil {
			return nil, errors.NewParse("json", id, "layer "+name+": "+err.Error())
		}
		d.Layers = append(d.Layers, &ld)
	}

	t, err := s.codec.DictToText(d, s.textOpts...)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 && s.cache != nil {
		s.cache.Put(row.hash, t)
	}
	logging.StorageEvent(ctx, "get", id, "layers", len(names))
	return t, nil
}

// dependencies maps every stored layer of a text to the layer it depends on.
func (s *Store) dependencies(ctx context.Context, id string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, dependency FROM layers WHERE text_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := map[string]string{}
	for rows.Next() {
		var name, dep string
		if err := rows.Scan(&name, &dep); err != nil {
			return nil, err
		}
		deps[name] = dep
	}
	return deps, rows.Err()
}

// closure returns the named layers and all of their ancestors.
func closure(deps map[string]string, names []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, name := range names {
		for name != "" && !seen[name] {
			dep, ok := deps[name]
			if !ok {
				return nil, errors.NewNotFound("layer", name)
			}
			seen[name] = true
			out = append(out, name)
			name = dep
		}
	}
	return out, nil
}

// AddLayer attaches a copy of l to the stored text id. The layer's
// dependency must already be stored and its name must be free.
func (s *Store) AddLayer(ctx context.Context, id string, l *text.Layer) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c := l.CopyTo(t)
	if err := t.AddLayer(c); err != nil {
		return err
	}
	ld, err := s.codec.LayerToDict(c)
	if err != nil {
		return err
	}
	d, err := s.codec.TextToDict(t)
	if err != nil {
		return err
	}
	hash, err := dictHash(d)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertLayer(ctx, tx, id, ld); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE texts SET hash = ? WHERE id = ?`, hash, id); err != nil {
		return errors.Wrap(err, "update hash")
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Put(hash, t)
	}
	logging.StorageEvent(ctx, "add_layer", id, "layer", c.Name(), "spans", c.Len())
	return nil
}

// List returns all stored texts in insertion order.
func (s *Store) List(ctx context.Context) ([]TextInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, length, hash, created_at FROM texts ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []TextInfo
	index := map[string]int{}
	for rows.Next() {
		var info TextInfo
		var created string
		if err := rows.Scan(&info.ID, &info.Length, &info.Hash, &created); err != nil {
			return nil, err
		}
		info.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, errors.NewParse("time", info.ID, err.Error())
		}
		info.Layers = []string{}
		index[info.ID] = len(infos)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	layerRows, err := s.db.QueryContext(ctx, `SELECT text_id, name FROM layers ORDER BY text_id, name`)
	if err != nil {
		return nil, err
	}
	defer layerRows.Close()
	for layerRows.Next() {
		var id, name string
		if err := layerRows.Scan(&id, &name); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			infos[i].Layers = append(infos[i].Layers, name)
		}
	}
	return infos, layerRows.Err()
}

// Delete removes a text and its layers.
func (s *Store) Delete(ctx context.Context, id string) error {
	row, err := s.loadRow(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM texts WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "delete text")
	}
	if s.cache != nil {
		s.cache.Remove(row.hash)
	}
	logging.StorageEvent(ctx, "delete", id)
	return nil
}

// Count returns the number of stored texts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM texts`).Scan(&n)
	return n, err
}
