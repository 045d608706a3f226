package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lpint02/iot-predictive-maintenance/internal/app"
	"github.com/Lpint02/iot-predictive-maintenance/internal/config"
	"github.com/Lpint02/iot-predictive-maintenance/internal/logging"
	"github.com/Lpint02/iot-predictive-maintenance/internal/topology"
)

var version = "dev"
var appName = "motor-simulator"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting", startupAttrs(cfg)...)
	if !cfg.SeedFromEnv {
		slog.Info("set SIM_SEED to replay this run", "seed", cfg.Seed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}

func startupAttrs(cfg config.Config) []any {
	return []any{
		"version", version,
		"env", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"simConfig", cfg.SimConfigPath,
		"seed", cfg.Seed,
		"seedFromEnv", cfg.SeedFromEnv,
		"lifecycleAsset", topology.DesignatedAsset(cfg.Simulation.Topology),
	}
}
