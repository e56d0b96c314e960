// Package gpioirq turns rising edges on a GPIO line into callbacks.
package gpioirq

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// pollTimeout bounds how long the watcher blocks in WaitForEdge before it
// checks for a stop request.
const pollTimeout = 250 * time.Millisecond

// ErrAlreadyRegistered is returned by Register when a callback is active
var ErrAlreadyRegistered = errors.New("gpioirq: callback already registered")

// Source watches one input pin for rising edges
type Source struct {
	mu   sync.Mutex
	pin  gpio.PinIn
	stop chan struct{}
	done chan struct{}
}

var _ lightning.InterruptSource = (*Source)(nil)

// Open initializes the periph host drivers and resolves a BCM pin number
func Open(bcm int) (*Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpioirq: could not initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(strconv.Itoa(bcm))
	if pin == nil {
		return nil, fmt.Errorf("gpioirq: no such GPIO pin %d", bcm)
	}
	return New(pin), nil
}

// New wraps an already-resolved pin
func New(pin gpio.PinIn) *Source {
	return &Source{pin: pin}
}

// Register configures the pin for rising-edge detection and calls cb from a
// dedicated goroutine for each edge. Edges are delivered one at a time.
func (s *Source) Register(cb func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return ErrAlreadyRegistered
	}
	if err := s.pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return fmt.Errorf("gpioirq: could not enable edge detection on %s: %w", s.pin, err)
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.watch(cb, s.stop, s.done)
	return nil
}

func (s *Source) watch(cb func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !s.pin.WaitForEdge(pollTimeout) {
			continue
		}
		select {
		case <-stop:
			return
		default:
			cb()
		}
	}
}

// Deregister stops the watcher, waits for an in-flight callback to return
// and disables edge detection. It returns lightning.ErrNotRegistered when
// nothing is registered.
func (s *Source) Deregister() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return lightning.ErrNotRegistered
	}

	close(s.stop)
	// Halt unblocks WaitForEdge on drivers that support it
	haltErr := s.pin.Halt()
	<-s.done
	s.stop, s.done = nil, nil

	if err := s.pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return errors.Join(haltErr, fmt.Errorf("gpioirq: could not disable edge detection on %s: %w", s.pin, err))
	}
	return haltErr
}

// Close deregisters any active callback and releases the pin
func (s *Source) Close() error {
	err := s.Deregister()
	if errors.Is(err, lightning.ErrNotRegistered) {
		return nil
	}
	return err
}
