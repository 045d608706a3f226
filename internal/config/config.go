package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid marks configuration errors. They are fatal at startup.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// HTTPAddr serves /healthz and /metrics. Empty disables the ops server.
	HTTPAddr string

	SimConfigPath string

	// Seed drives every random draw of the run. When SIM_SEED is unset a
	// time-based seed is chosen and SeedFromEnv is false.
	Seed        int64
	SeedFromEnv bool

	MQTTConnectRetryInterval time.Duration

	Simulation Simulation
}

// LoadFromEnv reads the process settings from the environment, then loads
// and validates the simulation file they point at. Environment MQTT settings
// override the file.
func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	switch httpAddr {
	case "":
		httpAddr = ":9100"
	case "off":
		httpAddr = ""
	}

	simPath := strings.TrimSpace(os.Getenv("SIM_CONFIG_PATH"))
	if simPath == "" {
		simPath = "config/sensor_config.json"
	}

	retryStr := strings.TrimSpace(os.Getenv("MQTT_CONNECT_RETRY_INTERVAL"))
	if retryStr == "" {
		retryStr = "5s"
	}
	retry, err := time.ParseDuration(retryStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_CONNECT_RETRY_INTERVAL %q: %w", retryStr, err)
	}
	if retry <= 0 {
		return Config{}, fmt.Errorf("MQTT_CONNECT_RETRY_INTERVAL must be positive, got %v", retry)
	}

	seed := time.Now().UnixNano()
	seedFromEnv := false
	if seedStr := strings.TrimSpace(os.Getenv("SIM_SEED")); seedStr != "" {
		seed, err = strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SIM_SEED %q: %w", seedStr, err)
		}
		seedFromEnv = true
	}

	sim, err := LoadSimulation(simPath)
	if err != nil {
		return Config{}, err
	}
	if err := sim.applyEnv(); err != nil {
		return Config{}, err
	}
	if sim.MQTT.ClientID == "" {
		sim.MQTT.ClientID = "motorsim-" + uuid.NewString()
	}
	if err := sim.Validate(); err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:                   appEnv,
		LogLevel:                 level,
		HTTPAddr:                 httpAddr,
		SimConfigPath:            simPath,
		Seed:                     seed,
		SeedFromEnv:              seedFromEnv,
		MQTTConnectRetryInterval: retry,
		Simulation:               sim,
	}, nil
}

func (s *Simulation) applyEnv() error {
	if broker := strings.TrimSpace(os.Getenv("MQTT_BROKER")); broker != "" {
		s.MQTT.Broker = broker
	}
	if portStr := strings.TrimSpace(os.Getenv("MQTT_PORT")); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid MQTT_PORT %q: %w", portStr, err)
		}
		s.MQTT.Port = port
	}
	if clientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID")); clientID != "" {
		s.MQTT.ClientID = clientID
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
