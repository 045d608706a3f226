package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Lpint02/iot-predictive-maintenance/internal/config"
	"github.com/Lpint02/iot-predictive-maintenance/internal/httpapi"
	"github.com/Lpint02/iot-predictive-maintenance/internal/lifecycle"
	"github.com/Lpint02/iot-predictive-maintenance/internal/metrics"
	"github.com/Lpint02/iot-predictive-maintenance/internal/mqtt"
	"github.com/Lpint02/iot-predictive-maintenance/internal/scheduler"
	"github.com/Lpint02/iot-predictive-maintenance/internal/topology"
)

// Run builds the sensor fleet, connects to the broker and publishes until
// ctx is cancelled. Configuration problems are returned before any
// connection attempt.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	sim := cfg.Simulation
	pNormal, pWarning := sim.Run.Probabilities()

	logger.Info("config loaded",
		"simConfigPath", cfg.SimConfigPath,
		"mqttBroker", sim.MQTT.Broker,
		"mqttPort", sim.MQTT.Port,
		"mqttClientID", sim.MQTT.ClientID,
		"interval", sim.Run.Interval(),
		"normalProbability", pNormal,
		"warningProbability", pWarning,
		"seed", cfg.Seed,
		"seedFromEnv", cfg.SeedFromEnv,
	)

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1))

	engine := lifecycle.New(topology.DesignatedAsset(sim.Topology), lifecycle.DefaultProfiles(), rng, logger)
	registry, err := topology.Build(sim.Topology, sim.MotorSensors(), engine, rng)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}
	logger.Info("topology generated",
		"sectors", sim.Topology.Sectors.Count,
		"linesPerSector", sim.Topology.Lines.Count,
		"assetsPerLine", sim.Topology.Assets.Count,
		"sensors", len(registry.Entries),
		"lifecycleAsset", registry.DesignatedAsset,
	)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	client := mqtt.NewClient(cfg, logger)

	sched, err := scheduler.New(scheduler.Options{
		Interval:           sim.Run.Interval(),
		NormalProbability:  pNormal,
		WarningProbability: pWarning,
	}, registry, engine, client, m, logger)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(client, promReg))
		go func() {
			logger.Info("http listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
			}
		}()
	}

	defer func() {
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("http shutting down")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown", "error", err)
			}
		}
		logger.Info("mqtt disconnecting")
		client.Disconnect()
	}()

	if err := client.ConnectWithRetry(ctx); err != nil {
		return err
	}

	return sched.Run(ctx)
}
