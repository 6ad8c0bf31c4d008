// Package dbmigrate applies the goose migrations bundled in the migrations package.
package dbmigrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fdg312/fitclub/migrations"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Options tune a migration run. A zero value uses the embedded migrations.
type Options struct {
	// Dir reads migrations from disk instead of the embedded set.
	Dir    string
	Logger logrus.FieldLogger
}

// Run executes a goose command (up, down, status, ...) against dbURL.
func Run(ctx context.Context, command string, dbURL string, opts Options) error {
	if dbURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}

	dir := opts.Dir
	if dir == "" {
		goose.SetBaseFS(migrations.FS)
		dir = "."
	} else {
		goose.SetBaseFS(nil)
	}

	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}
