package main

import (
	"context"
	"fmt"
	"os"

	"github.com/haguru/schooladmin/config"
	"github.com/haguru/schooladmin/internal/app"
)

func main() {
	ctx := context.Background()

	// create and initialize the app
	app, err := app.NewApp(ctx, config.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	// Run blocks until SIGINT/SIGTERM, then drains in-flight requests.
	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server stopped: %v\n", err)
		os.Exit(1)
	}
}
