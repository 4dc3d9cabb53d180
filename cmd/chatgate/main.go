// Command chatgate serves the login-gated chat API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MrEthical07/chatgate/internal/appconfig"
	"github.com/MrEthical07/chatgate/internal/logging"
)

func main() {
	cfg, err := appconfig.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
}
