package monitor

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/pingmon/internal/probe"
	"github.com/malbeclabs/pingmon/internal/stats"
)

// The summary repaints the screen and shows per-window aggregates.
func TestMonitor_Reporter_Summary(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(base.Add(5 * time.Second))

	engine := stats.NewEngine()
	for i, ms := range []int{10, 12, 11, 13, 9} {
		engine.Record(stats.Sample{
			Sequence: uint64(i + 1),
			SentAt:   base.Add(time.Duration(i) * 100 * time.Millisecond),
			RTT:      time.Duration(ms) * time.Millisecond,
		})
	}

	var buf bytes.Buffer
	r := NewReporter(log, &ReporterConfig{
		Clock:         clock,
		Engine:        engine,
		Interval:      time.Second,
		Target:        "example.com",
		TargetIP:      "203.0.113.7",
		Strategy:      "raw",
		ProbeInterval: 100 * time.Millisecond,
		Out:           &buf,
	})

	r.Report()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ansiClear))
	assert.Contains(t, out, "Ping Monitor - Target: example.com (203.0.113.7)")
	assert.Contains(t, out, "Strategy: raw")
	assert.Contains(t, out, "10 sec")
	assert.Contains(t, out, "11.00ms")
	assert.Contains(t, out, "9.00ms")
	assert.Contains(t, out, "13.00ms")
	assert.Contains(t, out, "1.41ms")
	assert.Contains(t, out, "0.0% (0)")
	assert.Contains(t, out, "Press Ctrl+C to stop")
}

// Verbose mode appends per-probe lines and never clears the screen.
func TestMonitor_Reporter_VerboseLines(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	engine := stats.NewEngine()

	var buf bytes.Buffer
	r := NewReporter(log, &ReporterConfig{
		Clock:         clock,
		Engine:        engine,
		Interval:      time.Second,
		Target:        "example.com",
		TargetIP:      "203.0.113.7",
		Strategy:      "external",
		ProbeInterval: 100 * time.Millisecond,
		Verbose:       true,
		Out:           &buf,
	})

	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.OnSample(
		stats.Sample{Sequence: 1, SentAt: sentAt, RTT: 12 * time.Millisecond},
		probe.OutcomeOf(12*time.Millisecond, nil),
	)
	r.OnSample(
		stats.Sample{Sequence: 2, SentAt: sentAt.Add(100 * time.Millisecond), Loss: true},
		probe.OutcomeOf(0, probe.ErrTimeout),
	)
	r.Report()

	out := buf.String()
	assert.Contains(t, out, "✓ 203.0.113.7: seq=1 time=12.00ms")
	assert.Contains(t, out, "✗ 203.0.113.7: seq=2 timeout")
	assert.Contains(t, out, "Packet responses shown below:")
	assert.NotContains(t, out, ansiClear)
}

// Rows degrade to placeholders when a window has no samples or no successes.
func TestMonitor_Reporter_SummaryRows(t *testing.T) {
	t.Parallel()

	t.Run("empty window", func(t *testing.T) {
		t.Parallel()

		row := summaryRow(stats.Short, stats.WindowAggregate{})
		assert.Equal(t, []string{"10 sec", "0", "-", "-", "-", "-", "-"}, row)
	})

	t.Run("all losses", func(t *testing.T) {
		t.Parallel()

		row := summaryRow(stats.Medium, stats.WindowAggregate{Count: 4, LossCount: 4, LossRate: 1})
		assert.Equal(t, []string{"1 min", "4", "100.0% (4)", "-", "-", "-", "-"}, row)
	})

	t.Run("mixed successes and losses", func(t *testing.T) {
		t.Parallel()

		agg := stats.WindowAggregate{
			Count:     5,
			LossCount: 2,
			LossRate:  0.4,
			RTTMean:   20 * time.Millisecond,
			RTTMin:    20 * time.Millisecond,
			RTTMax:    20 * time.Millisecond,
			Jitter:    0,
		}
		row := summaryRow(stats.Long, agg)
		assert.Equal(t, []string{"5 min", "5", "40.0% (2)", "20.00ms", "20.00ms", "20.00ms", "0.00ms"}, row)
	})
}

// Run renders at the report cadence until cancelled.
func TestMonitor_Reporter_RunRendersOnCadence(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	engine := stats.NewEngine()

	var buf syncBuffer
	r := NewReporter(log, &ReporterConfig{
		Clock:         clock,
		Engine:        engine,
		Interval:      time.Second,
		Target:        "example.com",
		TargetIP:      "203.0.113.7",
		Strategy:      "raw",
		ProbeInterval: 100 * time.Millisecond,
		Out:           &buf,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Ping Monitor - Target: example.com (203.0.113.7)")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for report loop to stop")
	}
}
