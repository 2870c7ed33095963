package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/annotext/core/cas"
	"github.com/FocuswithJustin/annotext/core/collection"
	"github.com/FocuswithJustin/annotext/core/storage"
	"github.com/FocuswithJustin/annotext/core/tcf"
)

// StoreGroup contains text store operations.
type StoreGroup struct {
	Put  StorePutCmd  `cmd:"" help:"Insert a text and print its ID"`
	Get  StoreGetCmd  `cmd:"" help:"Load a stored text as JSON"`
	List StoreListCmd `cmd:"" help:"List stored texts"`
	Rm   StoreRmCmd   `cmd:"" help:"Delete a stored text"`
}

func (a *App) openStore() (*storage.Store, error) {
	return storage.Open(a.ctx, a.cfg.Storage.Path,
		storage.WithCodec(a.codec),
		storage.WithCacheSize(a.cfg.Storage.CacheSize),
		storage.WithTextOptions(a.cfg.TextOptions()...),
	)
}

// StorePutCmd inserts a text.
type StorePutCmd struct {
	Input string `arg:"" help:"Text file (.txt, .json or .tcf)"`
}

func (c *StorePutCmd) Run(app *App) error {
	t, err := app.loadText(c.Input)
	if err != nil {
		return err
	}
	s, err := app.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	id, err := s.Insert(app.ctx, t)
	if err != nil {
		return err
	}
	app.printf("%s\n", id)
	return nil
}

// StoreGetCmd loads a stored text.
type StoreGetCmd struct {
	ID     string   `arg:"" help:"Text ID"`
	Layers []string `short:"l" help:"Load only these layers and their dependencies"`
	Out    string   `short:"o" help:"Output JSON file (default stdout)" type:"path"`
}

func (c *StoreGetCmd) Run(app *App) error {
	s, err := app.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	t, err := s.Get(app.ctx, c.ID, c.Layers...)
	if err != nil {
		return err
	}
	return app.writeText(t, c.Out)
}

// StoreListCmd lists stored texts.
type StoreListCmd struct{}

func (c *StoreListCmd) Run(app *App) error {
	s, err := app.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	infos, err := s.List(app.ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLENGTH\tLAYERS\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, humanize.Comma(int64(info.Length)),
			strings.Join(info.Layers, ","), humanize.Time(info.CreatedAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	app.printf("%d texts\n", len(infos))
	return nil
}

// StoreRmCmd deletes a stored text.
type StoreRmCmd struct {
	ID string `arg:"" help:"Text ID"`
}

func (c *StoreRmCmd) Run(app *App) error {
	s, err := app.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Delete(app.ctx, c.ID)
}

// CollectionCmd contains collection archive operations.
type CollectionCmd struct {
	Pack   CollectionPackCmd   `cmd:"" help:"Pack texts into an archive"`
	Unpack CollectionUnpackCmd `cmd:"" help:"Extract an archive into a directory"`
	List   CollectionListCmd   `cmd:"" help:"List the texts of an archive"`
}

// CollectionPackCmd packs texts into an archive. Each text is named after
// its file name without extension.
type CollectionPackCmd struct {
	Out         string   `short:"o" required:"" help:"Archive path" type:"path"`
	Compression string   `help:"Compression" enum:"xz,gzip" default:"xz"`
	Inputs      []string `arg:"" help:"Text files (.txt, .json or .tcf)"`
}

func (c *CollectionPackCmd) Run(app *App) error {
	coll := collection.New(app.codec)
	for _, in := range c.Inputs {
		t, err := app.loadText(in)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		if err := coll.Add(name, t); err != nil {
			return err
		}
	}
	if err := coll.Pack(c.Out, collection.Compression(c.Compression)); err != nil {
		return err
	}
	app.printf("%s: %d texts\n", c.Out, coll.Len())
	return nil
}

// CollectionUnpackCmd extracts an archive.
type CollectionUnpackCmd struct {
	Archive string `arg:"" help:"Archive path" type:"existingfile"`
	Dir     string `arg:"" help:"Target directory" type:"path"`
}

func (c *CollectionUnpackCmd) Run(app *App) error {
	m, err := collection.Extract(c.Archive, c.Dir)
	if err != nil {
		return err
	}
	app.printf("%s: %d texts\n", c.Dir, len(m.Entries))
	return nil
}

// CollectionListCmd lists an archive.
type CollectionListCmd struct {
	Archive string `arg:"" help:"Archive path" type:"existingfile"`
}

func (c *CollectionListCmd) Run(app *App) error {
	m, err := collection.ReadManifest(c.Archive)
	if err != nil {
		return err
	}
	app.printf("collection %s created %s\n", m.ID, m.CreatedAt)
	w := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tLENGTH\tLAYERS\tSHA256")
	for _, e := range m.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, humanize.Bytes(uint64(e.SizeBytes)),
			humanize.Comma(int64(e.Length)), strings.Join(e.Layers, ","), cas.ShortHash(e.SHA256))
	}
	return w.Flush()
}

// TCFGroup contains TCF conversions.
type TCFGroup struct {
	Import TCFImportCmd `cmd:"" help:"Convert a TCF document to JSON"`
	Export TCFExportCmd `cmd:"" help:"Convert a text to a TCF document"`
}

// TCFImportCmd converts TCF to JSON.
type TCFImportCmd struct {
	Input string `arg:"" help:"TCF document" type:"existingfile"`
	Out   string `short:"o" help:"Output JSON file (default stdout)" type:"path"`
}

func (c *TCFImportCmd) Run(app *App) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}
	t, err := tcf.Import(data)
	if err != nil {
		return err
	}
	return app.writeText(t, c.Out)
}

// TCFExportCmd converts a text with a words layer to TCF.
type TCFExportCmd struct {
	Input string `arg:"" help:"Text file (.json)"`
	Out   string `short:"o" help:"Output TCF file (default stdout)" type:"path"`
}

func (c *TCFExportCmd) Run(app *App) error {
	t, err := app.loadText(c.Input)
	if err != nil {
		return err
	}
	data, err := tcf.Export(t)
	if err != nil {
		return err
	}
	return app.write(data, c.Out)
}
