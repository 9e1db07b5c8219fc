package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/clock"
	"github.com/chrissnell/radmon/internal/counter"
	"github.com/chrissnell/radmon/internal/log"
	"github.com/chrissnell/radmon/internal/managers"
	"github.com/chrissnell/radmon/internal/monitor"
	"github.com/chrissnell/radmon/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	clock          clock.Clock
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		clock:          clock.System{},
		logger:         logger,
	}
}

// WithClock replaces the wall clock used to time windows
func (a *App) WithClock(clk clock.Clock) *App {
	a.clock = clk
	return a
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) (err error) {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		err = multierr.Append(err, a.configProvider.Close())
	}()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, cfg.Storage, a.logger.Named("storage"))
	if err != nil {
		return err
	}
	defer func() {
		// Workers must be gone before the store is closed underneath them
		cancel()
		wg.Wait()
		err = multierr.Append(err, storageManager.Close())
	}()

	mon := monitor.New(counter.New(a.clock), storageManager.Store, storageManager.SampleDistributor, a.logger.Named("monitor"))

	// Initialize the detector manager
	dm, err := managers.NewDetectorManager(ctx, &wg, cfg.Detectors, mon, a.logger.Named("detectors"))
	if err != nil {
		return err
	}
	if err := dm.StartDetectors(); err != nil {
		return err
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfg.Controllers, mon, storageManager, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	mon.StartReporter(ctx, &wg, cfg.Counter.ReportInterval)

	log.Infow("Application started successfully",
		"storage", storageManager.Backend,
		"detectors", len(dm.Names()),
		"controllers", cm.Count(),
		"report_interval", cfg.Counter.ReportInterval)

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
