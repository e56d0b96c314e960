package as3935

import (
	"testing"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr = 0x03

func read(reg, v byte) i2ctest.IO {
	return i2ctest.IO{Addr: addr, W: []byte{reg}, R: []byte{v}}
}

func write(reg, v byte) i2ctest.IO {
	return i2ctest.IO{Addr: addr, W: []byte{reg, v}}
}

func newPlayback(t *testing.T, ops ...i2ctest.IO) (*Dev, *i2ctest.Playback) {
	t.Helper()
	bus := &i2ctest.Playback{Ops: ops}
	dev, err := New(bus, addr)
	require.NoError(t, err)
	dev.sleep = func(time.Duration) {}
	return dev, bus
}

func TestNewRejectsBadAddress(t *testing.T) {
	_, err := New(&i2ctest.Playback{}, 0)
	assert.Error(t, err)
	_, err = New(&i2ctest.Playback{}, 0x80)
	assert.Error(t, err)
}

func TestSetIndoors(t *testing.T) {
	tests := []struct {
		name    string
		indoors bool
		current byte
		want    byte
	}{
		{name: "indoor from reset", indoors: true, current: 0x24, want: 0x24},
		{name: "outdoor from indoor", indoors: false, current: 0x24, want: 0x1C},
		{name: "keeps power-down bit", indoors: true, current: 0x1D, want: 0x25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, bus := newPlayback(t, read(regAFEGain, tt.current), write(regAFEGain, tt.want))
			require.NoError(t, dev.SetIndoors(tt.indoors))
			require.NoError(t, bus.Close())
		})
	}
}

func TestSetNoiseFloor(t *testing.T) {
	dev, bus := newPlayback(t, read(regNoise, 0x22), write(regNoise, 0x52))
	require.NoError(t, dev.SetNoiseFloor(5))
	require.NoError(t, bus.Close())

	assert.Error(t, dev.SetNoiseFloor(8))
	assert.Error(t, dev.SetNoiseFloor(-1))
}

func TestRaiseNoiseFloor(t *testing.T) {
	t.Run("increments", func(t *testing.T) {
		dev, bus := newPlayback(t, read(regNoise, 0x22), write(regNoise, 0x32))
		require.NoError(t, dev.RaiseNoiseFloor())
		require.NoError(t, bus.Close())
	})

	t.Run("saturates at seven", func(t *testing.T) {
		dev, bus := newPlayback(t, read(regNoise, 0x72))
		require.NoError(t, dev.RaiseNoiseFloor())
		require.NoError(t, bus.Close())
	})
}

func TestNoiseFloor(t *testing.T) {
	dev, bus := newPlayback(t, read(regNoise, 0x42))
	level, err := dev.NoiseFloor()
	require.NoError(t, err)
	assert.Equal(t, 4, level)
	require.NoError(t, bus.Close())
}

func TestSetMaskDisturber(t *testing.T) {
	dev, bus := newPlayback(t,
		read(regInterrupt, 0x00), write(regInterrupt, 0x20),
		read(regInterrupt, 0x28), write(regInterrupt, 0x08),
	)
	require.NoError(t, dev.SetMaskDisturber(true))
	require.NoError(t, dev.SetMaskDisturber(false))
	require.NoError(t, bus.Close())
}

func TestCalibrate(t *testing.T) {
	dev, bus := newPlayback(t,
		read(regTuning, 0x00),
		write(regTuning, 0x06),
		write(regCalibRCO, 0x96),
		write(regTuning, 0x26),
		write(regTuning, 0x06),
	)
	var slept time.Duration
	dev.sleep = func(d time.Duration) { slept += d }

	require.NoError(t, dev.Calibrate(6))
	require.NoError(t, bus.Close())
	assert.Equal(t, 3*calibrationWait, slept)

	assert.Error(t, dev.Calibrate(16))
}

func TestInterruptReason(t *testing.T) {
	tests := []struct {
		reg  byte
		want lightning.Reason
	}{
		{0x01, lightning.ReasonNoiseHigh},
		{0x04, lightning.ReasonDisturber},
		{0x08, lightning.ReasonStrike},
		{0xC8, lightning.ReasonStrike},
		{0x00, lightning.ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			dev, bus := newPlayback(t, read(regInterrupt, tt.reg))
			got, err := dev.InterruptReason()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, bus.Close())
		})
	}
}

func TestDistanceKm(t *testing.T) {
	dev, bus := newPlayback(t,
		read(regDistance, 0x0E),
		read(regDistance, 0x01),
		read(regDistance, 0x3F),
	)

	km, err := dev.DistanceKm()
	require.NoError(t, err)
	assert.Equal(t, 14.0, km)

	km, err = dev.DistanceKm()
	require.NoError(t, err)
	assert.Equal(t, 1.0, km)

	_, err = dev.DistanceKm()
	assert.ErrorIs(t, err, ErrOutOfRange)
	require.NoError(t, bus.Close())
}

func TestOutOfRangeStrikeIsCounted(t *testing.T) {
	dev, bus := newPlayback(t, read(regInterrupt, 0x08), read(regDistance, 0x3F))
	acc := lightning.NewAccumulator()
	h := lightning.NewHandler(dev, acc, nil, nil, nil, zaptest.NewLogger(t).Sugar())

	h.HandleInterrupt()

	summary := acc.Flush()
	assert.Equal(t, 1, summary.Count)
	assert.Nil(t, summary.AvgDistance)
	require.NoError(t, bus.Close())
}

func TestReadErrorIsWrapped(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	dev, err := New(bus, addr)
	require.NoError(t, err)

	_, err = dev.InterruptReason()
	assert.Error(t, err)
}

func TestCloseWithoutOwnedBus(t *testing.T) {
	dev, _ := newPlayback(t)
	assert.NoError(t, dev.Close())
}
