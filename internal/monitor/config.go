package monitor

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/pingmon/internal/probe"
)

const (
	// DefaultProbeInterval is the probe cadence when none is configured.
	DefaultProbeInterval = 100 * time.Millisecond

	// DefaultReportInterval is the cadence of the statistics display.
	DefaultReportInterval = 1 * time.Second
)

type Config struct {
	Clock clockwork.Clock

	// Prober issues the reachability probes. The monitor owns it and
	// releases it on shutdown.
	Prober probe.Prober

	// Target is the host as configured, kept for display. Defaults to the
	// resolved address.
	Target string

	// TargetIP is the resolved probe destination.
	TargetIP *net.IPAddr

	ProbeInterval  time.Duration // defaulted if zero
	ReportInterval time.Duration // defaulted if zero

	// Verbose appends one line per probe between summary renders instead
	// of repainting the screen in place.
	Verbose bool

	// Out receives all human-readable output. Defaults to stdout.
	Out io.Writer
}

func (cfg *Config) Validate() error {
	if cfg.Clock == nil {
		return errors.New("clock is required")
	}
	if cfg.Prober == nil {
		return errors.New("prober is required")
	}
	if cfg.TargetIP == nil || cfg.TargetIP.IP == nil {
		return errors.New("target IP is required")
	}
	if cfg.Target == "" {
		cfg.Target = cfg.TargetIP.IP.String()
	}
	if cfg.ProbeInterval == 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}
	if cfg.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be greater than 0")
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = DefaultReportInterval
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be greater than 0")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return nil
}
