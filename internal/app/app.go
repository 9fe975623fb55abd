// Package app assembles the monitor and its optional backends from a
// configuration and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/volcanomonitor/internal/classifier"
	"github.com/chrissnell/volcanomonitor/internal/command"
	"github.com/chrissnell/volcanomonitor/internal/console"
	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/controllers/restserver"
	"github.com/chrissnell/volcanomonitor/internal/features"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/logstore"
	"github.com/chrissnell/volcanomonitor/internal/managers"
	"github.com/chrissnell/volcanomonitor/internal/monitor"
	"github.com/chrissnell/volcanomonitor/internal/report"
	"github.com/chrissnell/volcanomonitor/internal/sensor"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run boots the monitor and blocks until it halts or a shutdown signal
// arrives. An operator stop is a clean exit.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	sessionID := uuid.NewString()
	a.logger.Infow("starting volcano monitor",
		"device", cfg.Device.Name, "session", sessionID, "version", constants.Version)

	rng, err := sensor.NewEntropySource()
	if err != nil {
		return fmt.Errorf("could not seed sensor source: %w", err)
	}

	// Initialize the storage manager
	storageManager := managers.NewStorageManager(ctx, &wg, cfg.Storage)

	rwc, err := console.Open(ctx, cfg.Device.Console)
	if err != nil {
		return err
	}
	defer rwc.Close()

	commands := command.NewInterpreter(rwc)
	defer commands.Close()

	store := logstore.New(cfg.Device.DataDir)
	mon := monitor.New(monitor.Config{
		Store:      store,
		Sensor:     sensor.NewSource(rng),
		Normalizer: features.NewNormalizer(features.DefaultCalibration()),
		Classifier: classifier.NewNetwork(constants.WorkspaceSize),
		LoadModel:  modelLoader(cfg.Device.ModelFile),
		Commands:   commands,
		Reporter:   report.New(rwc, cfg.Device.Telemetry),
		Publisher:  storageManager,
		SessionID:  sessionID,
		Timing:     monitor.DefaultTiming(),
	})

	if rc := cfg.Controllers.RESTServer; rc != nil {
		ctl := restserver.NewController(ctx, &wg, *rc, mon, store, storageManager.Health)
		if storageManager.History != nil {
			ctl.SetHistory(storageManager.History)
		}
		if err := ctl.StartController(); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- mon.Run(ctx)
	}()

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var runErr error
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
		cancel()
		runErr = <-done
	case runErr = <-done:
		log.Info("monitor halted, shutting down...")
	}

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return runErr
}

// modelLoader returns the bundled model unless path names a replacement.
func modelLoader(path string) monitor.ModelLoader {
	return func() ([]byte, error) {
		if path == "" {
			return classifier.DefaultModel(), nil
		}
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read model file: %w", err)
		}
		return blob, nil
	}
}
