// Command kwalld runs the K*Wall dispatcher as a foreground daemon: it
// loads a configuration file, opens the packet-interception driver, and
// scores intercepted payloads until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/kwall/kwall/internal/config"
	"github.com/kwall/kwall/internal/dispatcher"
	"github.com/kwall/kwall/internal/driver"
	"github.com/kwall/kwall/internal/elevate"
	"github.com/kwall/kwall/internal/telemetry"
)

func main() {
	var configPath = pflag.StringP("config", "c", "kwall.conf", "Configuration file path.")
	var debug = pflag.BoolP("debug", "d", false, "Enable debug-level logging.")
	var skipElevationCheck = pflag.Bool("skip-elevation-check", false, "Skip the privilege check (development only).")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "kwalld - host-level network text filter.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: kwalld [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "kwalld",
	})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	if !*skipElevationCheck {
		if err := elevate.Check(); err != nil {
			logger.Fatal("elevation check failed", "error", err)
		}
	}

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", "path", *configPath, "error", err)
	}
	logger.Info("configuration loaded", "path", *configPath, "threads", cfg.Threads, "groups", len(cfg.Groups))

	sink := telemetry.NewSink(logger, 4096)
	drv := driver.NewLoopback()

	d := dispatcher.New(cfg, drv, sink, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.Start(ctx); err != nil {
		logger.Fatal("failed to start dispatcher", "error", err)
	}
	logger.Info("dispatcher running", "state", d.State())

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")
	d.Stop()
	logger.Info("dispatcher stopped", "passed", d.Passed(), "dropped", d.Dropped())
}
