package lightning

import (
	"context"
	"errors"
	"sync"
)

type fakeSensor struct {
	mu sync.Mutex

	reason    Reason
	reasonErr error
	distance  float64
	distErr   error
	panicOn   bool

	indoors      *bool
	noiseFloor   int
	calibration  int
	raised       int
	masked       bool
	closed       bool
	calibrateErr error
	closeErr     error
}

func (f *fakeSensor) SetIndoors(indoors bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indoors = &indoors
	return nil
}

func (f *fakeSensor) SetNoiseFloor(level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noiseFloor = level
	return nil
}

func (f *fakeSensor) Calibrate(tuningCap int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calibration = tuningCap
	return f.calibrateErr
}

func (f *fakeSensor) RaiseNoiseFloor() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raised++
	return nil
}

func (f *fakeSensor) SetMaskDisturber(mask bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.masked = mask
	return nil
}

func (f *fakeSensor) InterruptReason() (Reason, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn {
		panic("bus exploded")
	}
	return f.reason, f.reasonErr
}

func (f *fakeSensor) DistanceKm() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.distance, f.distErr
}

func (f *fakeSensor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

// strike arms the sensor so the next interrupt reports a strike at km
func (f *fakeSensor) strike(km float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reason = ReasonStrike
	f.distance = km
}

type fakeInterrupt struct {
	mu            sync.Mutex
	cb            func()
	registers     int
	deregisters   int
	deregisterErr error
	closed        bool
}

func (f *fakeInterrupt) Register(cb func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cb != nil {
		return errors.New("already registered")
	}
	f.cb = cb
	f.registers++
	return nil
}

func (f *fakeInterrupt) Deregister() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deregisters++
	if f.deregisterErr != nil {
		return f.deregisterErr
	}
	if f.cb == nil {
		return ErrNotRegistered
	}
	f.cb = nil
	return nil
}

func (f *fakeInterrupt) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeInterrupt) fire() {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type recorded struct {
	ts int64
	km *float64
}

type fakeRecorder struct {
	mu     sync.Mutex
	rows   []recorded
	err    error
	closed bool
}

func (f *fakeRecorder) Append(ctx context.Context, ts int64, km *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, recorded{ts, km})
	return nil
}

func (f *fakeRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type countingObserver struct {
	mu          sync.Mutex
	interrupts  map[Reason]int
	strikes     int
	unranged    int
	errors      map[string]int
	persistErrs int
	flushed     []int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		interrupts: map[Reason]int{},
		errors:     map[string]int{},
	}
}

func (o *countingObserver) InterruptReceived(r Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interrupts[r]++
}

func (o *countingObserver) StrikeRecorded(km *float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.strikes++
	if km == nil {
		o.unranged++
	}
}

func (o *countingObserver) HandlerError(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors[stage]++
}

func (o *countingObserver) PersistError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.persistErrs++
}

func (o *countingObserver) IntervalFlushed(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flushed = append(o.flushed, n)
}
