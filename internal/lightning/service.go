package lightning

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chrissnell/remoteweather-lightning/internal/types"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// HostService is the lifecycle an engine drives for each attached service
type HostService interface {
	OnInit(ctx context.Context) error
	OnPeriodicRecord(kind types.RecordKind, rec *types.Reading)
	OnShutdown() error
}

// Service binds an AS3935 sensor to the engine's record stream
type Service struct {
	config   config.LightningData
	binding  types.RecordKind
	sensor   SensorPort
	irq      InterruptSource
	recorder Recorder
	acc      *Accumulator
	handler  *Handler
	obs      Observer
	logger   *zap.SugaredLogger
}

// Deps are the collaborators a Service is built from. Recorder, Clock and
// Observer are optional.
type Deps struct {
	Sensor    SensorPort
	Interrupt InterruptSource
	Recorder  Recorder
	Clock     clockwork.Clock
	Observer  Observer
}

var _ HostService = (*Service)(nil)

// NewService creates a lightning service. The sensor is not touched until
// OnInit.
func NewService(cfg config.LightningData, deps Deps, logger *zap.SugaredLogger) (*Service, error) {
	if deps.Sensor == nil || deps.Interrupt == nil {
		return nil, fmt.Errorf("lightning [%s]: sensor and interrupt source are required", cfg.Name)
	}

	binding, err := types.ParseRecordKind(cfg.Binding)
	if err != nil {
		return nil, fmt.Errorf("lightning [%s]: %w", cfg.Name, err)
	}

	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	acc := NewAccumulator()
	s := &Service{
		config:   cfg,
		binding:  binding,
		sensor:   deps.Sensor,
		irq:      deps.Interrupt,
		recorder: deps.Recorder,
		acc:      acc,
		obs:      obs,
		logger:   logger,
	}
	s.handler = NewHandler(deps.Sensor, acc, deps.Recorder, deps.Clock, obs, logger)

	return s, nil
}

// OnInit configures the sensor and registers the interrupt handler. Any
// error here is fatal to startup.
func (s *Service) OnInit(ctx context.Context) error {
	c := s.config
	s.logger.Infow("starting lightning service",
		"name", c.Name,
		"address", fmt.Sprintf("0x%02x", c.Address),
		"bus", c.Bus,
		"indoors", c.Indoors,
		"noise_floor", c.NoiseFloor,
		"calibration", fmt.Sprintf("0x%02x", c.Calibration),
		"pin", c.Pin,
		"binding", s.binding,
		"data_binding", c.DataBinding,
	)

	if err := s.sensor.SetIndoors(c.Indoors); err != nil {
		return fmt.Errorf("lightning [%s]: could not set indoor mode: %w", c.Name, err)
	}
	if err := s.sensor.SetNoiseFloor(c.NoiseFloor); err != nil {
		return fmt.Errorf("lightning [%s]: could not set noise floor: %w", c.Name, err)
	}
	if err := s.sensor.Calibrate(c.Calibration); err != nil {
		return fmt.Errorf("lightning [%s]: could not calibrate: %w", c.Name, err)
	}

	// A registration left over from an earlier start in this process would
	// make Register fail, so clear it first. Nothing registered is fine.
	if err := s.irq.Deregister(); err != nil {
		s.logger.Debugf("lightning [%s]: clearing previous interrupt registration: %v", c.Name, err)
	}

	// Strikes that land between run cancellation and OnShutdown still
	// reach the archive.
	s.handler.ctx = context.WithoutCancel(ctx)
	if err := s.irq.Register(s.handler.HandleInterrupt); err != nil {
		return fmt.Errorf("lightning [%s]: could not register interrupt on pin %d: %w", c.Name, c.Pin, err)
	}

	return nil
}

// OnPeriodicRecord flushes the strikes gathered since the previous record
// onto rec, if kind matches the configured packet binding.
func (s *Service) OnPeriodicRecord(kind types.RecordKind, rec *types.Reading) {
	if kind != s.binding {
		return
	}
	summary := s.acc.Flush()
	Augment(rec, summary)
	s.obs.IntervalFlushed(summary.Count)

	if summary.Count > 0 {
		s.logger.Infow("attached lightning summary",
			"kind", kind,
			"strikes", rec.LightningStrikes,
			"avg_distance", *rec.LightningAvgDistance,
			"units", rec.UnitSystem,
		)
	}
}

// OnShutdown releases the interrupt registration, the recorder and the bus.
// Every release is attempted; the errors are joined.
func (s *Service) OnShutdown() error {
	var errs []error

	if err := s.irq.Deregister(); err != nil && !errors.Is(err, ErrNotRegistered) {
		errs = append(errs, fmt.Errorf("deregister interrupt: %w", err))
	}
	if c, ok := s.irq.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close interrupt source: %w", err))
		}
	}
	if c, ok := s.recorder.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close recorder: %w", err))
		}
	}
	if err := s.sensor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sensor: %w", err))
	}

	if pending := s.acc.Pending(); pending > 0 {
		s.logger.Infof("lightning [%s]: discarding %d strikes not yet attached to a record", s.config.Name, pending)
	}

	return errors.Join(errs...)
}

// Pending returns the strikes waiting for the next record
func (s *Service) Pending() int {
	return s.acc.Pending()
}

// Binding returns the record kind this service augments
func (s *Service) Binding() types.RecordKind {
	return s.binding
}
