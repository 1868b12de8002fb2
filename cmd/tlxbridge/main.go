// TLX Bridge - Danfoss TLX Pro to MQTT
//
// This is the main entry point for the TLX bridge daemon. It polls a
// Danfoss TLX Pro solar inverter over the EtherLynx UDP protocol and
// publishes decoded readings to an MQTT broker, with Home Assistant
// discovery so the inverter appears as a device without manual YAML.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openlynx/tlx-bridge/internal/bridge"
	"github.com/openlynx/tlx-bridge/internal/etherlynx"
	"github.com/openlynx/tlx-bridge/internal/infrastructure/config"
	"github.com/openlynx/tlx-bridge/internal/infrastructure/logging"
	"github.com/openlynx/tlx-bridge/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TLX bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})

	// Create the inverter client
	inverter, err := etherlynx.Connect(etherlynx.Config{
		Address:          cfg.Inverter.Host,
		Port:             cfg.Inverter.Port,
		Timeout:          cfg.ExchangeTimeout(),
		DiscoveryTimeout: cfg.DiscoveryTimeout(),
		SourceIdentity:   cfg.Inverter.SourceIdentity,
		Identity:         cfg.Inverter.Identity,
		MaxPerBatch:      cfg.Inverter.MaxPerBatch,
	})
	if err != nil {
		return fmt.Errorf("connecting to inverter: %w", err)
	}
	defer func() {
		log.Info("closing inverter session")
		if closeErr := inverter.Close(); closeErr != nil {
			log.Error("error closing inverter session", "error", closeErr)
		}
	}()
	inverter.SetLogger(log.With("component", "etherlynx"))

	// Discover the inverter unless an identity was configured. A sleeping
	// inverter is not fatal; the bridge keeps trying from its poll loop.
	if inverter.Identity() == "" {
		identity, discErr := inverter.Discover()
		if discErr != nil {
			log.Warn("initial discovery failed, inverter may be asleep", "error", discErr)
		} else {
			log.Info("inverter discovered", "identity", identity)
		}
	} else {
		log.Info("using configured inverter identity", "identity", inverter.Identity())
	}

	// Verify the broker connection before entering the poll loops
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("health checks passed")

	// Build and run the bridge; Run blocks until ctx is cancelled
	b := bridge.New(inverter, mqttClient, inverter.Catalog(), mqttClient.Topics(),
		log.With("component", "bridge"), bridge.Options{
			RealtimeInterval: cfg.RealtimeInterval(),
			EnergyInterval:   cfg.EnergyInterval(),
			SystemInterval:   cfg.SystemInterval(),
			OfflineThreshold: cfg.Polling.OfflineThreshold,
			OfflineCooldown:  cfg.OfflineCooldown(),
			PVStrings:        cfg.Inverter.PVStrings,
		})

	log.Info("initialisation complete, polling",
		"inverter", fmt.Sprintf("%s:%d", cfg.Inverter.Host, cfg.Inverter.Port),
		"realtime_interval", cfg.RealtimeInterval().String(),
	)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bridge: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("TLX bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TLXBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TLXBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
