// Hearthside Core - Assisted Living Control Kernel
//
// This is the main entry point for the Hearthside daemon. Hearthside keeps
// a small household of devices under caregiver control: a device registry,
// an energy monitor, a phrase-based command interpreter, and a permission
// gate with an audit trail, exposed over REST, WebSocket, and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/hearthside/hearthside-core/migrations"

	"github.com/hearthside/hearthside-core/internal/access"
	"github.com/hearthside/hearthside-core/internal/api"
	"github.com/hearthside/hearthside-core/internal/audit"
	"github.com/hearthside/hearthside-core/internal/bridges/remote"
	"github.com/hearthside/hearthside-core/internal/command"
	"github.com/hearthside/hearthside-core/internal/device"
	"github.com/hearthside/hearthside-core/internal/energy"
	"github.com/hearthside/hearthside-core/internal/infrastructure/config"
	"github.com/hearthside/hearthside-core/internal/infrastructure/database"
	"github.com/hearthside/hearthside-core/internal/infrastructure/influxdb"
	"github.com/hearthside/hearthside-core/internal/infrastructure/logging"
	"github.com/hearthside/hearthside-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearthside Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Open database and run migrations
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device registry
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB), log)
	if loadErr := registry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading device registry: %w", loadErr)
	}
	if seedErr := device.SeedDefaults(ctx, registry); seedErr != nil {
		return fmt.Errorf("seeding devices: %w", seedErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	// Command interpretation and the simulated voice recognizer
	interp := command.NewInterpreter(registry)

	phrases := cfg.Recognition.Phrases
	if len(phrases) == 0 {
		phrases = config.DefaultPhrases
	}
	recognizer, err := command.NewScriptedRecognizer(phrases, cfg.GetListenDelay())
	if err != nil {
		return fmt.Errorf("creating recognizer: %w", err)
	}

	// Caregiver access control and the audit trail
	trail := audit.NewSQLiteRepository(db.DB)
	controller := access.NewController(access.NewSQLiteRepository(db.DB), registry, interp, trail, log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var bridge *remote.Bridge
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// Remote command bridge: commands in, results and state out
		bridge = remote.New(mqttClient, controller, log, byte(cfg.MQTT.QoS))
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting remote bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping remote bridge")
			if stopErr := bridge.Stop(); stopErr != nil {
				log.Error("error stopping remote bridge", "error", stopErr)
			}
		}()
		registry.OnChange(bridge.PublishDeviceState)
		log.Info("remote bridge started")
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

		// Record per-device power on every state change
		influx := influxClient
		registry.OnChange(func(d device.Device) {
			influx.WriteDeviceMetric(d.ID, "power_watts", float64(d.EffectiveWatts()))
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Energy monitor, fanning snapshots out to whichever sinks are live
	tariff := energy.Tariff{
		UnitRate:            cfg.Energy.UnitRate,
		BaselineMonthlyCost: cfg.Energy.BaselineMonthlyCost,
	}
	monitor := energy.NewMonitor(registry, tariff, cfg.GetSampleInterval(), log)
	if influxClient != nil {
		monitor.AddSink(influxClient)
	}
	if bridge != nil {
		monitor.AddSink(bridge)
	}

	// HTTP API and WebSocket hub
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Registry:   registry,
		Controller: controller,
		Monitor:    monitor,
		Trail:      trail,
		Recognizer: recognizer,
		Phrases:    phrases,
		MQTT:       mqttClient,
		Version:    version,
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
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Stream energy snapshots to WebSocket subscribers once the hub exists
	monitor.AddSink(api.NewEnergyBroadcaster(server.Hub()))
	go monitor.Run(ctx)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, bridge, MQTT, database.

	log.Info("Hearthside Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTHSIDE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTHSIDE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections. MQTT and InfluxDB are
// nil when disabled and skipped.
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
