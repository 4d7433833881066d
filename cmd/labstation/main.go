// Labstation - Instrument Control Station
//
// This is the main entry point for the labstation service. It hosts a
// simulated instrument bus, a station registry with snapshot
// persistence, and a REST/WebSocket API for lab dashboards:
//   - YAML-described simulated instruments (dialogues, properties,
//     error queues, status registers)
//   - Station snapshots persisted to SQLite
//   - Optional MQTT parameter telemetry and InfluxDB acquisition writes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/ThorvaldLarsen/labstation/migrations"

	"github.com/ThorvaldLarsen/labstation/internal/api"
	"github.com/ThorvaldLarsen/labstation/internal/bus"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/config"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/database"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/influxdb"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/logging"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/mqtt"
	"github.com/ThorvaldLarsen/labstation/internal/sim"
	"github.com/ThorvaldLarsen/labstation/internal/station"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting labstation",
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

	// Load simulated instrument descriptions
	registry, err := sim.Load(cfg.Simulation.Files...)
	if err != nil {
		return fmt.Errorf("loading simulation descriptions: %w", err)
	}
	log.Info("simulation registry loaded",
		"files", len(cfg.Simulation.Files),
		"devices", len(registry.DeviceNames()),
	)

	// Create the message bus over the simulation registry
	b := bus.New(registry)
	b.SetLogger(log)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	snapshots := station.NewSQLiteSnapshotRepository(db.DB)

	// Assemble the station from the loaded devices
	components := make(map[string]station.Snapshotter)
	for _, name := range registry.DeviceNames() {
		device, deviceErr := registry.Device(name)
		if deviceErr != nil {
			return fmt.Errorf("looking up device %q: %w", name, deviceErr)
		}
		components[name] = device
	}

	opts := []station.Option{station.WithLogger(log)}
	if cfg.Station.SetDefault {
		opts = append(opts, station.AsDefault())
	}
	st, err := station.New(cfg.Station.Name, components, opts...)
	if err != nil {
		return fmt.Errorf("creating station: %w", err)
	}
	if cfg.Station.SetDefault {
		defer station.ClearDefault()
	}
	log.Info("station initialised",
		"station", st.Name(),
		"components", len(components),
	)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Station:   st,
		Bus:       b,
		Snapshots: snapshots,
		MQTT:      mqttClient,
		Influx:    influxClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("labstation stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LABSTATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LABSTATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
