// Package engine emits the periodic loop and archive records services
// attach their data to
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"github.com/chrissnell/remoteweather-lightning/internal/types"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Engine produces a loop packet every LoopInterval and an archive record
// every ArchiveInterval. Each record is passed through the attached
// services, in the order they were added, before it is published.
type Engine struct {
	clock       clockwork.Clock
	stationName string
	units       types.UnitSystem
	loop        time.Duration
	archive     time.Duration
	logger      *zap.SugaredLogger

	mu       sync.Mutex
	services []lightning.HostService

	records chan types.Reading
}

// New creates an engine. A nil clock means the wall clock.
func New(cfg config.EngineData, clock clockwork.Clock, logger *zap.SugaredLogger) (*Engine, error) {
	units, err := types.ParseUnitSystem(cfg.UnitSystem)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if cfg.LoopInterval <= 0 || cfg.ArchiveInterval <= 0 {
		return nil, fmt.Errorf("engine: intervals must be positive")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Engine{
		clock:       clock,
		stationName: cfg.StationName,
		units:       units,
		loop:        cfg.LoopInterval,
		archive:     cfg.ArchiveInterval,
		logger:      logger,
		records:     make(chan types.Reading, 10),
	}, nil
}

// AddService attaches a service to the record stream
func (e *Engine) AddService(s lightning.HostService) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.services = append(e.services, s)
}

// Records returns the channel finished records are published on. It is
// closed when the engine stops.
func (e *Engine) Records() <-chan types.Reading {
	return e.records
}

// Start emits records in a new goroutine until ctx is cancelled
func (e *Engine) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.run(ctx)
	}()
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.records)

	loop := e.clock.NewTicker(e.loop)
	defer loop.Stop()
	archive := e.clock.NewTicker(e.archive)
	defer archive.Stop()

	e.logger.Infof("engine started: loop every %v, archive every %v (%s units)", e.loop, e.archive, e.units)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("cancellation request received; stopping engine")
			return
		case t := <-loop.Chan():
			if !e.emit(ctx, types.LoopPacket, t, 0) {
				return
			}
		case t := <-archive.Chan():
			if !e.emit(ctx, types.ArchiveRecord, t, e.archive) {
				return
			}
		}
	}
}

// emit builds one record, runs it past the services and publishes it. It
// reports false if ctx was cancelled while publishing.
func (e *Engine) emit(ctx context.Context, kind types.RecordKind, t time.Time, interval time.Duration) bool {
	rec := types.Reading{
		Timestamp:   t,
		StationName: e.stationName,
		Kind:        kind,
		UnitSystem:  e.units,
		Interval:    interval,
	}

	e.mu.Lock()
	services := e.services
	e.mu.Unlock()

	for _, s := range services {
		s.OnPeriodicRecord(kind, &rec)
	}

	select {
	case e.records <- rec:
		return true
	case <-ctx.Done():
		return false
	}
}
