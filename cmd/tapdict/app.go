package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/japaniel/tapdict/internal/config"
	"github.com/japaniel/tapdict/internal/logging"
	"github.com/japaniel/tapdict/pkg/engine"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFailure is the exit code for any failed command.
	ExitCodeFailure
)

const version = "0.1.0"

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "tapdict",
		Usage:   "Look up inflected words in imported term-bank dictionaries.",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE`",
				Aliases: []string{"c"},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database `PATH` (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:    "dict",
				Usage:   "enabled dictionary `ID`, repeat in priority order (overrides config)",
				Aliases: []string{"d"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log `LEVEL` (overrides config)",
			},
		},
		Commands: []*cli.Command{
			importCommand,
			deleteCommand,
			listCommand,
			lookupCommand,
			scanCommand,
			serveCommand,
		},
	}
}

// loadConfig reads the configuration and applies the global flag
// overrides, then configures logging.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if p := c.String("db"); p != "" {
		cfg.Database.Path = p
	}
	if ids := c.StringSlice("dict"); len(ids) > 0 {
		cfg.Lookup.Dictionaries = ids
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openEngine loads the configuration and opens the engine it describes.
func openEngine(c *cli.Context, withAnalyzer bool) (*engine.Engine, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	e, err := engine.Open(c.Context, cfg, withAnalyzer)
	if err != nil {
		return nil, nil, err
	}
	return e, cfg, nil
}

func newTable(out io.Writer, columns ...interface{}) table.Table {
	headerFmt := func(format string, vals ...interface{}) string {
		return strings.ToUpper(fmt.Sprintf(format, vals...))
	}
	return table.New(columns...).WithWriter(out).WithHeaderFormatter(headerFmt)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func joinGlosses(glosses []string) string {
	return strings.Join(glosses, "; ")
}

func argOrError(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s argument, got %d", name, c.NArg())
	}
	return c.Args().First(), nil
}
