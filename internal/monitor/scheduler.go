package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/pingmon/internal/probe"
	"github.com/malbeclabs/pingmon/internal/stats"
)

type SchedulerConfig struct {
	Clock    clockwork.Clock
	Prober   probe.Prober
	Engine   *stats.Engine
	Interval time.Duration

	// OnSample, when set, is invoked after each sample is recorded. It runs
	// on the scheduler goroutine, so it must not block.
	OnSample func(sample stats.Sample, outcome probe.Outcome)
}

// Scheduler is responsible for driving the probe loop. It issues exactly one
// probe per tick, stamps each with a monotonically increasing sequence
// number, and records the outcome into the statistics engine. Probes never
// overlap: a reply slower than the interval stretches the cycle instead of
// piling concurrent probes onto the socket.
type Scheduler struct {
	log *slog.Logger
	cfg *SchedulerConfig

	seq uint64
}

func NewScheduler(log *slog.Logger, cfg *SchedulerConfig) *Scheduler {
	return &Scheduler{log: log, cfg: cfg}
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("Starting probe loop")

	ticker := s.cfg.Clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Probe loop done")
			return nil
		case <-ticker.Chan():
			s.Tick(ctx)
		}
	}
}

// Tick runs a single probe cycle. The wire sequence is the low 16 bits of
// the sample sequence; past 65535 it wraps and starts a fresh identifier
// cycle while the sample sequence keeps counting.
func (s *Scheduler) Tick(ctx context.Context) {
	s.seq++

	ts := s.cfg.Clock.Now().UTC()

	rtt, err := s.cfg.Prober.Probe(ctx, uint16(s.seq))
	if err != nil && ctx.Err() != nil {
		// Shutdown raced the probe. Drop the cycle rather than record a
		// loss that never happened.
		s.log.Debug("Probe abandoned during shutdown", "seq", s.seq)
		return
	}

	outcome := probe.OutcomeOf(rtt, err)
	if !outcome.OK() {
		s.log.Debug("Probe failed, recording loss", "seq", s.seq, "reason", outcome.Fail, "error", outcome.Err)
	}

	sample := stats.Sample{
		Sequence: s.seq,
		SentAt:   ts,
		RTT:      outcome.RTT,
		Loss:     !outcome.OK(),
	}
	s.cfg.Engine.Record(sample)

	if s.cfg.OnSample != nil {
		s.cfg.OnSample(sample, outcome)
	}
}
