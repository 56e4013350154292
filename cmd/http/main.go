package main

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/hafsaghannaj/maternal/internal/config"
	"github.com/hafsaghannaj/maternal/internal/events"
	"github.com/hafsaghannaj/maternal/internal/fedlearn"
	"github.com/hafsaghannaj/maternal/internal/registry"
	"github.com/hafsaghannaj/maternal/internal/server"
	"github.com/hafsaghannaj/maternal/internal/storage"
)

func main() {
	_ = os.Mkdir("log", 0777)
	logFile, err := os.OpenFile("log/run.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0777)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			panic(err)
		}
	}()

	cfg, err := config.Load(os.Getenv("MATERNAL_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "maternal",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: io.MultiWriter(os.Stdout, logFile),
	})

	eventBus := events.NewEventBus()

	store, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("Error opening storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	hospitalRegistry := registry.New(cfg.RegistryPath, eventBus, logger)
	if _, err := hospitalRegistry.Load(); err != nil {
		logger.Error("Error loading hospital registry", "error", err)
		os.Exit(1)
	}
	hospitalRegistry.StartStateChangeNotifier()
	defer hospitalRegistry.StopAllNotifiers()

	coordinator := fedlearn.NewCoordinator(eventBus, logger)

	handler := server.NewHandler(logger, eventBus, coordinator, store, hospitalRegistry, cfg.Training)

	server.StartHttpServer(logger, cfg.HTTPAddr, handler.Router())
}
