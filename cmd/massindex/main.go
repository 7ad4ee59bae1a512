package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chrissnell/massindex/internal/app"
	"github.com/chrissnell/massindex/internal/constants"
	"github.com/chrissnell/massindex/internal/log"
	"github.com/chrissnell/massindex/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")

	input := flag.String("input", "", "Consolidated CSV dataset, overrides input.path")
	temporalities := flag.String("temporality", "", "Comma-separated temporalities, e.g. weekly,monthly (Spanish names accepted)")
	binning := flag.Bool("binning", false, "Use logarithmic binning of the cumulative distribution")
	bins := flag.Int("bins", 0, "Number of logarithmic bins")
	minAmplitude := flag.Float64("min-amplitude", 0, "Drop echoes below this amplitude")
	workers := flag.Int("workers", 0, "Windows estimated concurrently")
	fillGaps := flag.Bool("fill-gaps", false, "Report empty calendar windows as skipped")
	format := flag.String("format", "", "Table format: csv, json or msgpack")
	compress := flag.String("compress", "", "Table compression: gzip or zstd")
	compare := flag.Bool("compare", false, "Also write a comparison of estimation methods over the whole dataset")
	annotate := flag.Bool("annotate", false, "Also write every record with the mass index of its windows")
	flag.Parse()

	if *showVersion {
		fmt.Printf("massindex %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.GetSugaredLogger()

	provider, err := newProvider(*cfgFile, *cfgBackend)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	// Flags given explicitly win over the configuration
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	override := func(c *config.ConfigData) {
		if set["input"] {
			c.Input.Type = "csv"
			c.Input.Path = *input
		}
		if set["temporality"] {
			c.Analysis.Temporalities = strings.Split(*temporalities, ",")
		}
		if set["binning"] {
			c.Analysis.Binning = *binning
		}
		if set["bins"] {
			c.Analysis.Bins = *bins
		}
		if set["min-amplitude"] {
			c.Analysis.MinAmplitude = *minAmplitude
		}
		if set["workers"] {
			c.Analysis.Workers = *workers
		}
		if set["fill-gaps"] {
			c.Analysis.FillGaps = *fillGaps
		}
		if set["format"] {
			c.Output.TableFormat = *format
		}
		if set["compress"] {
			c.Output.Compression = *compress
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(provider, logger)
	summary, err := application.Run(ctx, app.Options{
		Override: override,
		Compare:  *compare,
		Annotate: *annotate,
	})
	if err != nil {
		logger.Errorf("Application error: %v", err)
		log.Sync()
		os.Exit(1)
	}

	fmt.Printf("Run %s: %d records, %d windows (%d skipped), %d files written\n",
		summary.RunID, summary.Records, summary.Windows, summary.Skipped, len(summary.Files))
}

func newProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}
