package probe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRawProber struct{ closed bool }

func (f *fakeRawProber) Probe(ctx context.Context, seq uint16) (time.Duration, error) {
	return time.Millisecond, nil
}
func (f *fakeRawProber) Name() string { return "raw" }
func (f *fakeRawProber) Close() error { f.closed = true; return nil }

// swapNewRaw forces the raw constructor's outcome for the duration of a
// test. Tests using it mutate package state and must not run in parallel.
func swapNewRaw(t *testing.T, fn func(cfg RawConfig) (Prober, error)) {
	t.Helper()
	prev := newRaw
	newRaw = fn
	t.Cleanup(func() { newRaw = prev })
}

// Picks the raw prober whenever construction succeeds.
func TestProbe_Select_PrefersRaw(t *testing.T) {
	fake := &fakeRawProber{}
	swapNewRaw(t, func(cfg RawConfig) (Prober, error) { return fake, nil })

	p, err := Select(log, localhost(t), time.Second)
	require.NoError(t, err)
	require.Same(t, fake, p)
	require.Equal(t, "raw", p.Name())
}

// Permission denial at raw construction selects the external prober
// without surfacing an error, and probing still yields well-formed
// outcomes.
func TestProbe_Select_FallsBackOnPermissionDenied(t *testing.T) {
	swapNewRaw(t, func(cfg RawConfig) (Prober, error) {
		return nil, fmt.Errorf("open raw socket: %w", ErrPermissionDenied)
	})
	stubPing(t, "#!/bin/sh\necho '64 bytes from 127.0.0.1: icmp_seq=1 ttl=64 time=0.080 ms'\n")

	p, err := Select(log, localhost(t), time.Second)
	require.NoError(t, err)
	require.Equal(t, "external", p.Name())

	rtt, err := p.Probe(context.Background(), 3)
	require.NoError(t, err)
	out := OutcomeOf(rtt, err)
	require.True(t, out.OK())
	require.Equal(t, 80*time.Microsecond, out.RTT)
}

// Platforms without raw socket support fall back the same way.
func TestProbe_Select_FallsBackOnUnsupportedPlatform(t *testing.T) {
	swapNewRaw(t, func(cfg RawConfig) (Prober, error) { return nil, ErrPlatformNotSupported })

	p, err := Select(log, localhost(t), time.Second)
	require.NoError(t, err)
	require.Equal(t, "external", p.Name())
}

// Raw construction failures other than privilege are setup errors, not
// fallback triggers.
func TestProbe_Select_FatalOnOtherRawErrors(t *testing.T) {
	swapNewRaw(t, func(cfg RawConfig) (Prober, error) { return nil, errors.New("no such device") })

	_, err := Select(log, localhost(t), time.Second)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPermissionDenied)
}
