package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/massindex/internal/log"
	"github.com/chrissnell/massindex/internal/storage/sqlite"
	"github.com/chrissnell/massindex/pkg/config"
	"github.com/chrissnell/massindex/pkg/migrate"
	_ "modernc.org/sqlite" // SQLite driver
)

func main() {
	var (
		dbPath        = flag.String("db", "", "Path to the SQLite database")
		schema        = flag.String("schema", "results", "Schema to migrate: results or config")
		command       = flag.String("command", "up", "Migration command: up, to, version, status")
		targetVersion = flag.Int("target", -1, "Target version for the to command")
		debug         = flag.Bool("debug", false, "Turn on debugging output")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -db flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.Named("migrate")

	var provider migrate.MigrationProvider
	switch *schema {
	case "results":
		provider = sqlite.Migrations()
	case "config":
		provider = config.Migrations()
	default:
		logger.Fatalf("Unknown schema %q", *schema)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, provider, logger)

	switch *command {
	case "up":
		err = migrator.MigrateUp(ctx)
	case "to":
		if *targetVersion < 0 {
			fmt.Fprintf(os.Stderr, "Error: -target flag is required for to command\n")
			os.Exit(1)
		}
		err = migrator.MigrateTo(ctx, *targetVersion)
	case "version":
		var version int
		version, err = migrator.CurrentVersion(ctx)
		if err == nil {
			fmt.Printf("Current version: %d\n", version)
		}
	case "status":
		err = showStatus(ctx, migrator)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}

func showStatus(ctx context.Context, migrator *migrate.Migrator) error {
	version, err := migrator.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	pending, err := migrator.Pending(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %d\n", version)
	if len(pending) == 0 {
		fmt.Println("Schema is up to date")
		return nil
	}
	fmt.Printf("Pending migrations (%d):\n", len(pending))
	for _, m := range pending {
		fmt.Printf("  %03d %s\n", m.Version, m.Name)
	}
	return nil
}

func showHelp() {
	fmt.Println(`Usage: migrate -db <path> [options]

Applies the embedded schemas of the results and configuration databases.

Options:`)
	flag.PrintDefaults()
	fmt.Println(`
Examples:
  migrate -db results.db
  migrate -db results.db -command status
  migrate -db config.db -schema config -command to -target 0`)
}
