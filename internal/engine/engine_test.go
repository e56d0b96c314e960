package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/types"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubService struct {
	mu    sync.Mutex
	kinds []types.RecordKind
}

func (s *stubService) OnInit(context.Context) error { return nil }
func (s *stubService) OnShutdown() error            { return nil }

func (s *stubService) OnPeriodicRecord(kind types.RecordKind, rec *types.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	if kind == types.ArchiveRecord {
		rec.LightningStrikes = 7
	}
}

func receive(t *testing.T, ch <-chan types.Reading) types.Reading {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "records channel closed")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a record")
		return types.Reading{}
	}
}

func TestEngineEmitsLoopAndArchive(t *testing.T) {
	start := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)

	e, err := New(config.EngineData{
		StationName:     "backyard",
		UnitSystem:      "metric",
		LoopInterval:    2 * time.Second,
		ArchiveInterval: 4 * time.Second,
	}, clock, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	svc := &stubService{}
	e.AddService(svc)

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	e.Start(ctx, &wg)
	require.NoError(t, clock.BlockUntilContext(ctx, 2))

	clock.Advance(2 * time.Second)
	rec := receive(t, e.Records())
	assert.Equal(t, types.LoopPacket, rec.Kind)
	assert.Equal(t, "backyard", rec.StationName)
	assert.Equal(t, types.UnitSystemMetric, rec.UnitSystem)
	assert.Equal(t, start.Add(2*time.Second), rec.Timestamp)
	assert.Zero(t, rec.Interval)
	assert.Zero(t, rec.LightningStrikes)

	clock.Advance(2 * time.Second)
	got := map[types.RecordKind]types.Reading{}
	for i := 0; i < 2; i++ {
		r := receive(t, e.Records())
		got[r.Kind] = r
	}
	require.Contains(t, got, types.ArchiveRecord)
	require.Contains(t, got, types.LoopPacket)
	assert.Equal(t, 4*time.Second, got[types.ArchiveRecord].Interval)
	assert.Equal(t, 7, got[types.ArchiveRecord].LightningStrikes)

	cancel()
	wg.Wait()
	_, ok := <-e.Records()
	assert.False(t, ok)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Len(t, svc.kinds, 3)
}

func TestNewRejectsBadConfig(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	tests := []struct {
		name string
		cfg  config.EngineData
	}{
		{"unknown units", config.EngineData{UnitSystem: "imperial", LoopInterval: time.Second, ArchiveInterval: time.Minute}},
		{"zero loop", config.EngineData{UnitSystem: "us", ArchiveInterval: time.Minute}},
		{"zero archive", config.EngineData{UnitSystem: "us", LoopInterval: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil, logger)
			assert.Error(t, err)
		})
	}
}
