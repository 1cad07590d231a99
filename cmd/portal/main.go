// Command portal runs the lead operations portal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/twh-ops/leadportal/internal/portal/config"
	"github.com/twh-ops/leadportal/internal/portal/runtime"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $PORTAL_CONFIG)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
