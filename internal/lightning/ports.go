// Package lightning turns AS3935 interrupts into per-interval strike counts
// and average distances attached to the engine's outgoing weather records.
//
// Strikes arrive from the interrupt watcher at arbitrary times and are
// buffered in an Accumulator. Each time the engine emits a record of the
// configured kind the Service flushes the buffer and augments the record.
package lightning

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotRegistered is returned by InterruptSource.Deregister when no
// callback is registered.
var ErrNotRegistered = errors.New("no interrupt callback registered")

// ErrOutOfRange is returned by SensorPort.DistanceKm when a strike was
// detected but the storm is beyond the sensor's estimation range. The strike
// still counts; it just has no distance.
var ErrOutOfRange = errors.New("storm out of range")

// Reason is the interrupt cause reported by the sensor's INT register
type Reason uint8

const (
	ReasonNone      Reason = 0x00
	ReasonNoiseHigh Reason = 0x01
	ReasonDisturber Reason = 0x04
	ReasonStrike    Reason = 0x08
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoiseHigh:
		return "noise"
	case ReasonDisturber:
		return "disturber"
	case ReasonStrike:
		return "strike"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(r))
	}
}

// SensorPort is the subset of the AS3935 driver the service needs
type SensorPort interface {
	SetIndoors(indoors bool) error
	SetNoiseFloor(level int) error
	Calibrate(tuningCap int) error
	RaiseNoiseFloor() error
	SetMaskDisturber(mask bool) error
	InterruptReason() (Reason, error)
	DistanceKm() (float64, error)
	Close() error
}

// InterruptSource delivers rising-edge interrupts from the sensor's IRQ line.
// The callback is invoked from the source's own goroutine.
type InterruptSource interface {
	Register(callback func()) error
	Deregister() error
}

// Recorder persists individual strikes. Append must be durable on return
// or return an error; callers do not retry. A nil distance is an
// out-of-range strike.
type Recorder interface {
	Append(ctx context.Context, timestamp int64, distanceKm *float64) error
}

// Observer receives counters from the handler and service. Implementations
// must be safe for concurrent use.
type Observer interface {
	InterruptReceived(reason Reason)
	StrikeRecorded(distanceKm *float64)
	HandlerError(stage string)
	PersistError()
	IntervalFlushed(count int)
}

type nopObserver struct{}

func (nopObserver) InterruptReceived(Reason) {}
func (nopObserver) StrikeRecorded(*float64)  {}
func (nopObserver) HandlerError(string)      {}
func (nopObserver) PersistError()            {}
func (nopObserver) IntervalFlushed(int)      {}
