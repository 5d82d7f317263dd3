package main

import (
	"context"
	"os"

	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/commands"
	"gastos/internal/log"
)

func main() {
	cli.LoadEnvFile()

	open := func(ctx context.Context) (*backend.BackendResult, error) {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return nil, err
		}
		// Diagnostics go to stderr so --json output stays parseable.
		lvl, _ := log.ParseLevel(cfg.LogLevel)
		logger := log.New(log.Config{Level: lvl, Format: cfg.LogFormat, Component: log.ComponentCLI, Output: os.Stderr})
		log.SetDefault(logger)
		return cli.OpenBackend(ctx, logger, cfg)
	}

	// cobra reports the error itself.
	if err := commands.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}
