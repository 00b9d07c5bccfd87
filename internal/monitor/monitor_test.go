package monitor

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New rejects configs that fail validation.
func TestMonitor_New_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(log, Config{})
	require.Error(t, err)
	require.ErrorContains(t, err, "invalid config")
}

// Run probes on the configured cadence and releases the prober exactly once
// on cancellation.
func TestMonitor_Run_ProbesAndStopsCleanly(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()

	probed := make(chan uint16, 16)
	var closed atomic.Int32
	prober := &mockProber{
		ProbeFunc: func(ctx context.Context, seq uint16) (time.Duration, error) {
			probed <- seq
			return 5 * time.Millisecond, nil
		},
		CloseFunc: func() error {
			closed.Add(1)
			return nil
		},
	}

	var buf syncBuffer
	m, err := New(log, Config{
		Clock:          clock,
		Prober:         prober,
		Target:         "example.com",
		TargetIP:       &net.IPAddr{IP: net.IPv4(203, 0, 113, 7)},
		ProbeInterval:  100 * time.Millisecond,
		ReportInterval: time.Second,
		Out:            &buf,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Both the probe and report loops register tickers before time moves.
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(100 * time.Millisecond)

	select {
	case seq := <-probed:
		assert.Equal(t, uint16(1), seq)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for probe")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for monitor to stop")
	}

	assert.Equal(t, int32(1), closed.Load())
}

// The resolved address stands in for the display name when none is given.
func TestMonitor_New_DefaultsTargetName(t *testing.T) {
	t.Parallel()

	m, err := New(log, Config{
		Clock:    clockwork.NewFakeClock(),
		Prober:   &mockProber{},
		TargetIP: &net.IPAddr{IP: net.IPv4(203, 0, 113, 7)},
		Out:      &syncBuffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", m.cfg.Target)
}
