package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/gtclicks/ledger-backend/pkg/config"
	"github.com/gtclicks/ledger-backend/pkg/db"
	"github.com/gtclicks/ledger-backend/pkg/logger"
	"github.com/gtclicks/ledger-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fset := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fset.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	fset.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory for create and validate")
	fset.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	fset.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fset.Parse(args); err != nil {
		return opts, err
	}

	switch opts.cmd {
	case "up", "down", "status", "validate":
	case "create":
		if opts.name == "" {
			return opts, fmt.Errorf("-cmd=create requires -name")
		}
	case "version":
		if _, err := strconv.ParseInt(opts.version, 10, 64); err != nil {
			return opts, fmt.Errorf("-cmd=version requires a numeric -version, got %q", opts.version)
		}
	default:
		return opts, fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	_ = godotenv.Load()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	// create and validate work on files only.
	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Fprintln(out, "migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, nil)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		applied, err := runner.Up(ctx)
		logg.Info(logg.WithField(ctx, "applied", applied), "migrate.up_completed")
		return err
	case "down":
		version, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "migrate.down_completed")
		return nil
	case "version":
		target, _ := strconv.ParseInt(opts.version, 10, 64)
		return runner.To(ctx, target)
	default:
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(out, rows)
	}
}

func printStatus(out io.Writer, rows []migrate.Status) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tFILE")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, applied, row.Path)
	}
	return tw.Flush()
}
