// Package monitor wires the prober, the statistics engine, and the reporter
// into one continuously running reachability monitor.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/malbeclabs/pingmon/internal/stats"
)

// Monitor orchestrates continuous reachability monitoring by coordinating
// the probe scheduler and the statistics reporter around one shared sample
// engine. It owns the prober and releases it on shutdown.
type Monitor struct {
	log *slog.Logger
	cfg Config

	engine    *stats.Engine
	scheduler *Scheduler
	reporter  *Reporter
}

func New(log *slog.Logger, cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	engine := stats.NewEngine()

	reporter := NewReporter(log, &ReporterConfig{
		Clock:         cfg.Clock,
		Engine:        engine,
		Interval:      cfg.ReportInterval,
		Target:        cfg.Target,
		TargetIP:      cfg.TargetIP.IP.String(),
		Strategy:      cfg.Prober.Name(),
		ProbeInterval: cfg.ProbeInterval,
		Verbose:       cfg.Verbose,
		Out:           cfg.Out,
	})

	scheduler := NewScheduler(log, &SchedulerConfig{
		Clock:    cfg.Clock,
		Prober:   cfg.Prober,
		Engine:   engine,
		Interval: cfg.ProbeInterval,
		OnSample: reporter.OnSample,
	})

	return &Monitor{
		log:       log,
		cfg:       cfg,
		engine:    engine,
		scheduler: scheduler,
		reporter:  reporter,
	}, nil
}

// Run launches the probe and report loops and blocks until the context is
// cancelled or a component fails. The prober is released exactly once on
// the way out.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("Starting ping monitor",
		"target", m.cfg.Target,
		"ip", m.cfg.TargetIP.IP.String(),
		"strategy", m.cfg.Prober.Name(),
		"probeInterval", m.cfg.ProbeInterval,
		"reportInterval", m.cfg.ReportInterval,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Manual errCh + WaitGroup instead of errgroup.Group: per-component
	// error wrapping and full shutdown coordination.
	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	// Start the probe loop in the background.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.scheduler.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("failed to run probe loop: %w", err)
		}
	}()

	// Start the report loop in the background.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.reporter.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("failed to run report loop: %w", err)
		}
	}()

	// Wait for the context to be done or an error to be returned.
	var err error
	select {
	case <-ctx.Done():
	case e := <-errCh:
		m.log.Error("Ping monitor shutting down due to error", "error", e)
		err = e
		cancel()
	}

	wg.Wait()

	if cerr := m.Close(); cerr != nil {
		m.log.Warn("Failed to close ping monitor", "error", cerr)
	}

	return err
}

// Close releases the prober and its socket. Run calls it on the way out;
// call it directly only when Run was never started.
func (m *Monitor) Close() error {
	m.log.Info("Closing ping monitor")
	return m.cfg.Prober.Close()
}
