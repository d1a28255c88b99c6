package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eddielth/campus-telemetry/api"
	"github.com/eddielth/campus-telemetry/config"
	"github.com/eddielth/campus-telemetry/logger"
	"github.com/eddielth/campus-telemetry/mqtt"
	"github.com/eddielth/campus-telemetry/store"
	"github.com/eddielth/campus-telemetry/transform"
)

func main() {
	configPath := "config.yaml"

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitFromConfig(cfg.Logger.Level, cfg.Logger.FilePath,
		cfg.Logger.MaxSize, cfg.Logger.MaxBackups, cfg.Logger.Console); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	gateway, err := store.New(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}

	transforms, err := transform.NewManager(cfg.Transforms)
	if err != nil {
		log.Fatalf("failed to initialize transform manager: %v", err)
	}

	broker, err := mqtt.NewManager(cfg.MQTT, transforms, gateway)
	if err != nil {
		log.Fatalf("failed to initialize MQTT client: %v", err)
	}
	if err := broker.Start(); err != nil {
		log.Fatalf("failed to connect to MQTT broker: %v", err)
	}

	server := api.NewServer(cfg.HTTP.Addr, gateway)
	server.Start()

	// Transform scripts and the log level follow config file edits; MQTT,
	// database and HTTP changes take effect on restart.
	err = config.WatchConfig(configPath, func(newCfg *config.Config) error {
		if err := transforms.Reload(newCfg.Transforms); err != nil {
			logger.Error("failed to reload transform scripts: %v", err)
		}
		if err := logger.SetLevel(newCfg.Logger.Level); err != nil {
			logger.Warn("failed to apply log level: %v", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("failed to watch config file: %v", err)
	}

	logger.Info("campus telemetry backend started, waiting for sensor data...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	server.Stop()
	broker.Stop()
	gateway.Close()
	logger.Info("service stopped")
	logger.Close()
}
