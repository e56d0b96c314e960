package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/chrissnell/remoteweather-lightning/internal/controllers/restserver"
	"github.com/chrissnell/remoteweather-lightning/internal/engine"
	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"github.com/chrissnell/remoteweather-lightning/internal/log"
	"github.com/chrissnell/remoteweather-lightning/internal/managers"
	"github.com/chrissnell/remoteweather-lightning/internal/observability"
	"github.com/chrissnell/remoteweather-lightning/internal/sensors/as3935"
	"github.com/chrissnell/remoteweather-lightning/internal/sensors/gpioirq"
	"github.com/chrissnell/remoteweather-lightning/internal/types"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Hardware opens the sensor and its interrupt line
type Hardware func(cfg config.LightningData) (lightning.SensorPort, lightning.InterruptSource, error)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger

	// OpenHardware defaults to the AS3935 on I2C with a GPIO interrupt line
	OpenHardware Hardware
	// Clock drives the engine; nil means the wall clock
	Clock clockwork.Clock
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
		OpenHardware:   openAS3935,
	}
}

func openAS3935(cfg config.LightningData) (lightning.SensorPort, lightning.InterruptSource, error) {
	sensor, err := as3935.Open(strconv.Itoa(cfg.Bus), uint16(cfg.Address))
	if err != nil {
		return nil, nil, err
	}
	irq, err := gpioirq.Open(cfg.Pin)
	if err != nil {
		sensor.Close()
		return nil, nil, err
	}
	return sensor, irq, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	units, err := types.ParseUnitSystem(cfg.Engine.UnitSystem)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg.Engine, a.Clock, log.Named("engine"))
	if err != nil {
		return err
	}

	// Open the strike archive first; a schema mismatch aborts startup
	// before the sensor is touched
	recorder, err := managers.NewRecorder(ctx, cfg)
	if err != nil {
		return err
	}

	sensor, irq, err := a.OpenHardware(cfg.Lightning)
	if err != nil {
		closeQuietly(recorder)
		return fmt.Errorf("could not open lightning sensor: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	deps := lightning.Deps{
		Sensor:    sensor,
		Interrupt: irq,
		Recorder:  recorder,
		Observer:  metrics,
	}
	restDeps := restserver.Deps{
		UnitSystem: units,
		Archive:    recorder,
		Gatherer:   registry,
	}

	svc, err := lightning.NewService(cfg.Lightning, deps, log.Named("lightning"))
	if err != nil {
		closeQuietly(recorder)
		closeQuietly(irq)
		sensor.Close()
		return err
	}

	if err := svc.OnInit(ctx); err != nil {
		if shutdownErr := svc.OnShutdown(); shutdownErr != nil {
			log.Errorf("error releasing lightning service: %v", shutdownErr)
		}
		return err
	}
	restDeps.Status = svc

	eng.AddService(svc)
	eng.Start(ctx, &wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logRecords(eng.Records())
	}()

	cm, err := managers.NewControllerManager(ctx, &wg, cfg.Controllers, restDeps, a.logger)
	if err == nil {
		err = cm.StartControllers()
	}
	if err != nil {
		cancel()
		wg.Wait()
		return errors.Join(err, svc.OnShutdown())
	}

	log.Info("Application started successfully")

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

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()

	if err := svc.OnShutdown(); err != nil {
		return fmt.Errorf("error shutting down lightning service: %w", err)
	}
	log.Info("shutdown complete")

	return nil
}

// logRecords drains the engine output until it is closed
func logRecords(records <-chan types.Reading) {
	for rec := range records {
		log.Infow("record", "kind", rec.Kind.String(), "station", rec.StationName, "data", rec.ToMap())
	}
}

func closeQuietly(v interface{}) {
	if c, ok := v.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			log.Errorf("error closing %T: %v", v, err)
		}
	}
}
