// Command annotext tags, inspects, stores and converts annotated texts.
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/annotext/core/errors"
	"github.com/FocuswithJustin/annotext/core/layerdict"
	"github.com/FocuswithJustin/annotext/core/tcf"
	"github.com/FocuswithJustin/annotext/core/text"
	"github.com/FocuswithJustin/annotext/internal/config"
	"github.com/FocuswithJustin/annotext/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Config    string `name:"config" short:"c" help:"Configuration file" type:"path" env:"ANNOTEXT_CONFIG"`
	DB        string `name:"db" help:"SQLite text store (overrides storage.path)" type:"path" env:"ANNOTEXT_DB"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn or error (overrides logging.level)"`
	LogFormat string `name:"log-format" help:"Log format: text or json (overrides logging.format)"`

	Tag        TagCmd        `cmd:"" help:"Add layers to a text"`
	Show       ShowCmd       `cmd:"" help:"Show the layers of a text"`
	Conflicts  ConflictsCmd  `cmd:"" help:"Report or resolve overlapping spans of a layer"`
	Flatten    FlattenCmd    `cmd:"" help:"Flatten a layer into an ambiguous elementary layer"`
	Diff       DiffCmd       `cmd:"" help:"Compare a layer of two texts"`
	Span       SpanCmd       `cmd:"" help:"Parse and describe a base span literal"`
	Store      StoreGroup    `cmd:"" help:"SQLite text store"`
	Collection CollectionCmd `cmd:"" help:"Collection archives"`
	TCF        TCFGroup      `cmd:"" name:"tcf" help:"TCF import and export"`
	Version    VersionCmd    `cmd:"" help:"Print version information"`
}

// App carries what every command needs.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	codec  *layerdict.Codec
	stdout io.Writer
}

func newApp(ctx context.Context, cli *CLI, stdout io.Writer) (*App, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.DB != "" {
		cfg.Storage.Path = cli.DB
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.InitLogging()
	return &App{ctx: ctx, cfg: cfg, codec: layerdict.NewCodec(), stdout: stdout}, nil
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.stdout, format, args...)
}

// loadText reads a text from a layerdict JSON file, a TCF document or plain
// text, chosen by extension. "-" reads plain text from stdin.
func (a *App) loadText(path string) (*text.Text, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, &errors.IOError{Operation: "read", Path: path, Err: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return a.codec.FromJSON(data, a.cfg.TextOptions()...)
	case ".tcf", ".xml":
		t, err := tcf.Import(data)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return a.cfg.NewText(string(data)), nil
	}
}

// writeText writes t as JSON to path, or to stdout when path is empty.
func (a *App) writeText(t *text.Text, path string) error {
	data, err := a.codec.ToJSON(t)
	if err != nil {
		return err
	}
	return a.write(data, path)
}

func (a *App) write(data []byte, path string) error {
	if path == "" {
		_, err := a.stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &errors.IOError{Operation: "write", Path: path, Err: err}
	}
	return nil
}

// loadEnv reads .env from the working directory when present.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	if err := loadEnv(); err != nil {
		return err
	}
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("annotext"),
		kong.Description("Layered text annotation toolkit"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	ctx := logging.WithRunID(context.Background(), runID())
	app, err := newApp(ctx, &cli, stdout)
	if err != nil {
		return err
	}
	return kctx.Run(app)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "annotext:", err)
		os.Exit(1)
	}
}
