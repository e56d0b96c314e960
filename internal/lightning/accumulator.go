package lightning

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// StrikeEvent is one detected discharge
type StrikeEvent struct {
	// Timestamp is seconds since the Unix epoch
	Timestamp  int64
	DistanceKm float64
	// OutOfRange marks a strike the sensor could not range. DistanceKm is
	// meaningless for it.
	OutOfRange bool
}

// IntervalSummary aggregates the strikes of one reporting interval. Count
// includes out-of-range strikes. AvgDistance is the mean over the ranged
// strikes only, in kilometres, and nil when there were none.
type IntervalSummary struct {
	Count       int
	AvgDistance *float64
}

// Accumulator buffers strikes between flushes. Append is called from the
// interrupt watcher and Flush from the engine, concurrently.
type Accumulator struct {
	mu     sync.Mutex
	events []StrikeEvent
}

// NewAccumulator returns an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds a strike to the current interval
func (a *Accumulator) Append(e StrikeEvent) {
	a.mu.Lock()
	a.events = append(a.events, e)
	a.mu.Unlock()
}

// Pending returns the number of strikes buffered since the last flush
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// Flush detaches the buffered strikes and summarises them. A strike appended
// while Flush runs is either in the returned summary or in the next one.
func (a *Accumulator) Flush() IntervalSummary {
	a.mu.Lock()
	events := a.events
	a.events = nil
	a.mu.Unlock()

	if len(events) == 0 {
		return IntervalSummary{}
	}

	summary := IntervalSummary{Count: len(events)}

	distances := make([]float64, 0, len(events))
	for _, e := range events {
		if !e.OutOfRange {
			distances = append(distances, e.DistanceKm)
		}
	}
	if len(distances) > 0 {
		avg := stat.Mean(distances, nil)
		summary.AvgDistance = &avg
	}
	return summary
}
