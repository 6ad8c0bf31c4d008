package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/fitclub/internal/config"
	"github.com/fdg312/fitclub/internal/dbmigrate"
	"github.com/fdg312/fitclub/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if len(os.Args) < 2 {
		logger.Fatal("usage: go run ./cmd/migrate [up|status|down] [dir]")
	}

	command := os.Args[1]
	switch command {
	case "up", "status", "down":
	default:
		logger.Fatalf("unsupported command %q (allowed: up, status, down)", command)
	}

	opts := dbmigrate.Options{Logger: logger}
	if len(os.Args) > 2 {
		opts.Dir = os.Args[2]
	}

	sel, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		logger.WithError(err).Fatal("select database url")
	}
	if sel.Warning != "" {
		logger.Warn(sel.Warning)
	}

	log := logger.WithField("command", command).WithField("using", sel.Source)
	log.Info("migrate: starting")

	if err := dbmigrate.Run(context.Background(), command, sel.URL, opts); err != nil {
		log.WithError(err).Fatal("migrate failed")
	}

	log.Info("migrate: completed successfully")
}
