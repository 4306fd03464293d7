// main.go - Entry point and dependency injection
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sstent/garmin-token/internal/app"
	"github.com/sstent/garmin-token/internal/config"
	"github.com/sstent/garmin-token/internal/database"
	"github.com/sstent/garmin-token/internal/garmin"
	"github.com/sstent/garmin-token/internal/logging"
	"github.com/sstent/garmin-token/internal/prompt"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load environment variables from .env file
	dotEnvLoaded, dotEnvErr := config.LoadDotEnv()

	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return app.ExitCodeError
	}

	log := logging.NewLogger(os.Stderr, cfg.Debug, cfg.LogFormat)
	switch {
	case dotEnvErr != nil:
		log.WithError(dotEnvErr).Warn("Ignoring .env file")
	case !dotEnvLoaded:
		log.Debug("No .env file found, using system environment variables")
	}

	client, err := garmin.NewClient(garmin.Options{
		SSOURL:     cfg.SSOURL,
		ConnectURL: cfg.ConnectURL,
		Timeout:    cfg.Timeout,
		Logger:     log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return app.ExitCodeError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, client, prompt.New(os.Stdin, os.Stderr), os.Stdout, os.Stderr, log)

	if cfg.DBPath != "" {
		db, err := database.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			log.WithError(err).Warn("activity recording disabled")
		} else {
			defer db.Close()
			a.WithRecorder(db)
		}
	}

	return a.Run(ctx)
}
