package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"autoblog/internal/config"
	"autoblog/migrations"
)

const usage = `Usage: migrate [-db path] [-env-file .env] <command>

Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  redo        Roll back and re-apply the latest version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations`

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading DATABASE_PATH")
	dbPath := flag.String("db", "", "path to sqlite database (default $DATABASE_PATH or ./data/autoblog.db)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("load env: %v", err)
	}
	if *dbPath == "" {
		*dbPath = os.Getenv("DATABASE_PATH")
	}
	if *dbPath == "" {
		*dbPath = "./data/autoblog.db"
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	p, err := migrations.NewProvider(db)
	if err != nil {
		log.Fatal(err)
	}

	cmd := args[0]
	if err := execute(context.Background(), p, cmd); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func execute(ctx context.Context, p *goose.Provider, cmd string) error {
	switch cmd {
	case "up":
		results, err := p.Up(ctx)
		printResults(results...)
		return err
	case "up-one":
		r, err := p.UpByOne(ctx)
		printResults(r)
		return err
	case "down":
		r, err := p.Down(ctx)
		printResults(r)
		return err
	case "redo":
		r, err := p.Down(ctx)
		printResults(r)
		if err != nil {
			return err
		}
		r, err = p.UpByOne(ctx)
		printResults(r)
		return err
	case "reset":
		results, err := p.DownTo(ctx, 0)
		printResults(results...)
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		return tw.Flush()
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("version %d\n", v)
		return nil
	default:
		return fmt.Errorf("unknown command")
	}
}

func printResults(results ...*goose.MigrationResult) {
	if len(results) == 0 {
		fmt.Println("no migrations to run")
		return
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		fmt.Printf("%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration)
	}
}
