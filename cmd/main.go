package main

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/formcheck/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := cmp.Or(os.Getenv("FORMCHECK_CONFIG"), "config.toml")
	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("invalid configuration, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
		config.Database.Path = shared.ExpandPath(config.Database.Path)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	var db *sql.DB
	if opened, err := shared.OpenDatabase(config.Database); err == nil {
		db = opened
	} else {
		logger.Warn("database unavailable", "path", config.Database.Path, "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		DB:         db,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "formcheck",
		Usage:    "Squat form analysis from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err = app.Run(context.Background(), os.Args)
	if db != nil {
		db.Close()
	}
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, shared.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, shared.MsgSessionExpired)
		os.Exit(1)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
