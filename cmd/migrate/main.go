package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/routetiles/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("routetiles-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Fatalf("create schema_migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		runUp(ctx, pool)
	case "down":
		runDown(ctx, pool)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// runUp applies every *.up.sql file not yet recorded, in name order.
func runUp(ctx context.Context, pool *pgxpool.Pool) {
	files := migrationFiles(".up.sql")
	sort.Strings(files)

	for _, f := range files {
		version := version(f, ".up.sql")

		var applied bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&applied); err != nil {
			log.Fatalf("check %s: %v", version, err)
		}
		if applied {
			fmt.Printf("SKIP %s\n", f)
			continue
		}

		apply(ctx, pool, f, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
		fmt.Printf("OK   %s\n", f)
	}

	log.Println("all migrations applied")
}

// runDown reverts the most recently applied migration.
func runDown(ctx context.Context, pool *pgxpool.Pool) {
	var version string
	err := pool.QueryRow(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version)
	if err != nil {
		log.Fatalf("no migration to revert: %v", err)
	}

	f := filepath.Join(migrationsDir, version+".down.sql")
	apply(ctx, pool, f, `DELETE FROM schema_migrations WHERE version = $1`, version)
	fmt.Printf("OK   %s\n", f)
}

// apply runs a migration file and its bookkeeping statement in one transaction.
func apply(ctx context.Context, pool *pgxpool.Pool, file, record string, version string) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("read %s: %v", file, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		log.Fatalf("exec %s: %v", file, err)
	}
	if _, err := tx.Exec(ctx, record, version); err != nil {
		log.Fatalf("record %s: %v", version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit %s: %v", file, err)
	}
}

func migrationFiles(suffix string) []string {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*"+suffix))
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	return files
}

func version(file, suffix string) string {
	return strings.TrimSuffix(filepath.Base(file), suffix)
}
