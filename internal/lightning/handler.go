package lightning

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultSettleDelay is how long the handler waits after an edge before
// reading the INT register. The AS3935 needs 2 ms to latch the cause.
const DefaultSettleDelay = 3 * time.Millisecond

// Handler classifies AS3935 interrupts and records strikes
type Handler struct {
	ctx      context.Context
	sensor   SensorPort
	acc      *Accumulator
	recorder Recorder
	clock    clockwork.Clock
	settle   time.Duration
	obs      Observer
	logger   *zap.SugaredLogger
}

// NewHandler creates a handler that appends strikes to acc. recorder, clock
// and obs may be nil.
func NewHandler(sensor SensorPort, acc *Accumulator, recorder Recorder, clock clockwork.Clock, obs Observer, logger *zap.SugaredLogger) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Handler{
		ctx:      context.Background(),
		sensor:   sensor,
		acc:      acc,
		recorder: recorder,
		clock:    clock,
		settle:   DefaultSettleDelay,
		obs:      obs,
		logger:   logger,
	}
}

// HandleInterrupt services one rising edge on the IRQ line. It never panics
// and never returns an error; failures are logged and the interrupt dropped.
func (h *Handler) HandleInterrupt() {
	defer func() {
		if r := recover(); r != nil {
			h.obs.HandlerError("panic")
			h.logger.Errorw("interrupt handler panicked", "panic", r)
		}
	}()

	if h.settle > 0 {
		h.clock.Sleep(h.settle)
	}

	reason, err := h.sensor.InterruptReason()
	if err != nil {
		h.obs.HandlerError("interrupt_reason")
		h.logger.Errorw("could not read interrupt reason", "error", err)
		return
	}
	h.obs.InterruptReceived(reason)

	switch reason {
	case ReasonNoiseHigh:
		h.logger.Info("noise level too high - raising noise floor")
		if err := h.sensor.RaiseNoiseFloor(); err != nil {
			h.obs.HandlerError("raise_noise_floor")
			h.logger.Errorw("could not raise noise floor", "error", err)
		}
	case ReasonDisturber:
		h.logger.Info("detected disturber - masking")
		if err := h.sensor.SetMaskDisturber(true); err != nil {
			h.obs.HandlerError("mask_disturber")
			h.logger.Errorw("could not mask disturber", "error", err)
		}
	case ReasonStrike:
		h.recordStrike()
	default:
		h.logger.Debugf("ignoring interrupt with reason %v", reason)
	}
}

// recordStrike buffers and persists one strike. A strike beyond the
// sensor's range is counted without a distance; a failed bus read drops it.
func (h *Handler) recordStrike() {
	ts := h.clock.Now().Unix()
	event := StrikeEvent{Timestamp: ts}
	var distance *float64

	km, err := h.sensor.DistanceKm()
	switch {
	case errors.Is(err, ErrOutOfRange):
		event.OutOfRange = true
		h.logger.Infow("lightning strike out of range", "timestamp", ts)
	case err != nil:
		h.obs.HandlerError("distance")
		h.logger.Errorw("could not read strike distance", "error", err)
		return
	default:
		event.DistanceKm = km
		distance = &km
		h.logger.Infow("lightning strike", "distance_km", km, "timestamp", ts)
	}

	h.acc.Append(event)
	h.obs.StrikeRecorded(distance)

	if h.recorder == nil {
		return
	}
	if err := h.recorder.Append(h.ctx, ts, distance); err != nil {
		h.obs.PersistError()
		h.logger.Errorw("could not persist strike", "timestamp", ts, "out_of_range", event.OutOfRange, "error", err)
	}
}
