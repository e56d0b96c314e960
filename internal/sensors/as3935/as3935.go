// Package as3935 drives the ams AS3935 Franklin lightning sensor over I²C
// using periph.io.
package as3935

import (
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Register map
const (
	regAFEGain   = 0x00
	regNoise     = 0x01
	regInterrupt = 0x03
	regDistance  = 0x07
	regTuning    = 0x08
	regCalibRCO  = 0x3D
)

const (
	afeGainMask    = 0x3E
	afeGainIndoor  = 0x24
	afeGainOutdoor = 0x1C

	noiseFloorMask  = 0x70
	noiseFloorShift = 4
	maxNoiseFloor   = 7

	interruptMask = 0x0F
	maskDistBit   = 0x20

	distanceMask       = 0x3F
	distanceOutOfRange = 0x3F

	tuningCapMask = 0x0F
	dispSRCOBit   = 0x20

	directCommand = 0x96
)

// calibrationWait is the settle time between calibration steps
const calibrationWait = 2 * time.Millisecond

// ErrOutOfRange is returned by DistanceKm when the storm is beyond the
// sensor's 40 km estimation range.
var ErrOutOfRange = lightning.ErrOutOfRange

// Dev is an AS3935 on an I²C bus
type Dev struct {
	mu    sync.Mutex
	d     *i2c.Dev
	bus   i2c.BusCloser
	sleep func(time.Duration)
}

var _ lightning.SensorPort = (*Dev)(nil)

// Open initializes the periph host drivers, opens I²C bus busName ("1" for
// /dev/i2c-1) and returns the sensor at addr. Close releases the bus.
func Open(busName string, addr uint16) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("as3935: could not initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("as3935: could not open I2C bus %q: %w", busName, err)
	}

	dev, err := New(bus, addr)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	dev.bus = bus
	return dev, nil
}

// New returns the sensor at addr on an already-open bus. The caller keeps
// ownership of the bus.
func New(bus i2c.Bus, addr uint16) (*Dev, error) {
	if addr == 0 || addr > 0x7F {
		return nil, fmt.Errorf("as3935: invalid I2C address 0x%02x", addr)
	}
	return &Dev{
		d:     &i2c.Dev{Bus: bus, Addr: addr},
		sleep: time.Sleep,
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("AS3935{%s}", d.d)
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := d.d.Tx([]byte{reg}, b[:]); err != nil {
		return 0, fmt.Errorf("as3935: read register 0x%02x: %w", reg, err)
	}
	return b[0], nil
}

func (d *Dev) writeReg(reg, v byte) error {
	if err := d.d.Tx([]byte{reg, v}, nil); err != nil {
		return fmt.Errorf("as3935: write register 0x%02x: %w", reg, err)
	}
	return nil
}

// updateReg replaces the bits of reg selected by mask with v
func (d *Dev) updateReg(reg, mask, v byte) (byte, error) {
	cur, err := d.readReg(reg)
	if err != nil {
		return 0, err
	}
	next := (cur &^ mask) | (v & mask)
	return next, d.writeReg(reg, next)
}

// SetIndoors selects the AFE gain for indoor or outdoor installation
func (d *Dev) SetIndoors(indoors bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	gain := byte(afeGainOutdoor)
	if indoors {
		gain = afeGainIndoor
	}
	_, err := d.updateReg(regAFEGain, afeGainMask, gain)
	return err
}

// SetNoiseFloor sets the noise floor level (0-7)
func (d *Dev) SetNoiseFloor(level int) error {
	if level < 0 || level > maxNoiseFloor {
		return fmt.Errorf("as3935: noise floor %d out of range 0-%d", level, maxNoiseFloor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.updateReg(regNoise, noiseFloorMask, byte(level)<<noiseFloorShift)
	return err
}

// NoiseFloor returns the current noise floor level
func (d *Dev) NoiseFloor() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.readReg(regNoise)
	if err != nil {
		return 0, err
	}
	return int(r&noiseFloorMask) >> noiseFloorShift, nil
}

// RaiseNoiseFloor increments the noise floor by one. At the maximum level
// the register is left alone.
func (d *Dev) RaiseNoiseFloor() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.readReg(regNoise)
	if err != nil {
		return err
	}
	level := (r & noiseFloorMask) >> noiseFloorShift
	if level >= maxNoiseFloor {
		return nil
	}
	return d.writeReg(regNoise, (r&^noiseFloorMask)|(level+1)<<noiseFloorShift)
}

// SetMaskDisturber enables or disables reporting of disturber events
func (d *Dev) SetMaskDisturber(mask bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var v byte
	if mask {
		v = maskDistBit
	}
	_, err := d.updateReg(regInterrupt, maskDistBit, v)
	return err
}

// Calibrate writes the antenna tuning capacitor setting (0-15) and runs the
// RC oscillator calibration.
func (d *Dev) Calibrate(tuningCap int) error {
	if tuningCap < 0 || tuningCap > tuningCapMask {
		return fmt.Errorf("as3935: tuning capacitor %d out of range 0-15", tuningCap)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tuning, err := d.updateReg(regTuning, tuningCapMask, byte(tuningCap))
	if err != nil {
		return err
	}
	d.sleep(calibrationWait)

	if err := d.writeReg(regCalibRCO, directCommand); err != nil {
		return err
	}
	d.sleep(calibrationWait)

	// Pulse DISP_SRCO to finish the SRCO calibration
	if err := d.writeReg(regTuning, tuning|dispSRCOBit); err != nil {
		return err
	}
	d.sleep(calibrationWait)
	return d.writeReg(regTuning, tuning&^dispSRCOBit)
}

// InterruptReason reads and clears the INT register
func (d *Dev) InterruptReason() (lightning.Reason, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.readReg(regInterrupt)
	if err != nil {
		return 0, err
	}
	return lightning.Reason(r & interruptMask), nil
}

// DistanceKm returns the estimated distance to the storm front
func (d *Dev) DistanceKm() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.readReg(regDistance)
	if err != nil {
		return 0, err
	}
	km := r & distanceMask
	if km == distanceOutOfRange {
		return 0, ErrOutOfRange
	}
	return float64(km), nil
}

// Close releases the bus if it was opened by Open
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	return err
}
