// Package main provides the tally binary: a bill-of-materials engine for
// boundary-mesh construction models. It classifies element geometry,
// resolves parts against a material catalog, and keeps stable cut-list
// labels across model edits.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/engine"
	"github.com/baleframe/tally/pkg/labels"
	"github.com/baleframe/tally/pkg/model"
)

const version = "0.1.0"

// config carries the shared inputs of every subcommand. Environment
// variables (TALLY_*) set the defaults; flags override.
type config struct {
	ModelPath   string `envconfig:"MODEL" default:"model.json"`
	CatalogPath string `envconfig:"CATALOG" default:"catalog.yaml"`
	DBPath      string `envconfig:"DB" default:"tally.db"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config
	if err := envconfig.Process("tally", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Parts and materials resolution for construction models",
		Long: `Tally reads a construction model (a tree of boundary-mesh elements),
classifies each element's geometry, resolves every element against a
material catalog, and produces labelled, aggregated part lists.

Labels persist across runs: the same part keeps the same label until
labels are explicitly reset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cfg.LogLevel)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Model document path (JSON)")
	pf.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Material catalog path (YAML)")
	pf.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Label database path (SQLite)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	cmd.AddCommand(bomCmd(&cfg))
	cmd.AddCommand(queryCmd(&cfg))
	cmd.AddCommand(labelsCmd(&cfg))
	cmd.AddCommand(watchCmd(&cfg))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tally version %s\n", version)
		},
	})

	return cmd
}

func configureLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// fileSource reads the model document from disk on every rebuild.
type fileSource struct {
	path string
}

func (s fileSource) Model() ([]*model.Element, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return model.DecodeDocument(data)
}

// openEngine builds a fully-wired engine from the shared config. The
// caller owns the returned store and must close it.
func openEngine(cfg *config, opts ...engine.Option) (*engine.Engine, *labels.SQLiteStore, error) {
	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	store, err := labels.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open label store: %w", err)
	}
	eng, err := engine.New(fileSource{path: cfg.ModelPath}, cat, store, opts...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}
