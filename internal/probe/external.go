package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// externalGrace pads the process deadline past the ping-side wait so exit
// status, not a kill, is the usual failure path.
const externalGrace = 500 * time.Millisecond

// ExternalConfig configures the external-process prober.
type ExternalConfig struct {
	Logger  *slog.Logger
	Target  *net.IPAddr   // required: resolved IPv4 destination
	Timeout time.Duration // required: per-probe reply deadline
}

func (cfg *ExternalConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Target == nil || cfg.Target.IP.To4() == nil {
		return errors.New("target must be an IPv4 address")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	return nil
}

// externalProber shells out to the system ping for each probe. It needs no
// privilege and carries no state between calls.
type externalProber struct {
	log  *slog.Logger
	cfg  ExternalConfig
	args []string
}

// NewExternal builds the fallback prober. Construction cannot fail beyond
// config validation; a missing ping binary shows up per probe as a process
// failure.
func NewExternal(cfg ExternalConfig) (Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// iputils and busybox read -W in whole seconds; darwin in milliseconds.
	waitArg := strconv.Itoa(int(math.Ceil(cfg.Timeout.Seconds())))
	if runtime.GOOS == "darwin" {
		waitArg = strconv.Itoa(int(cfg.Timeout.Milliseconds()))
	}

	return &externalProber{
		log:  cfg.Logger,
		cfg:  cfg,
		args: []string{"-n", "-c", "1", "-W", waitArg, cfg.Target.IP.String()},
	}, nil
}

func (p *externalProber) Name() string { return "external" }

func (p *externalProber) Close() error { return nil }

// Probe runs a single-count ping bounded by a deadline slightly past the
// ping-side wait and parses the reported rtt from its output.
func (p *externalProber) Probe(ctx context.Context, seq uint16) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout+externalGrace)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", p.args...)
	// Without this a killed ping whose descendants hold the output pipe
	// open would stall CombinedOutput past the deadline.
	cmd.WaitDelay = externalGrace
	out, err := cmd.CombinedOutput()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return 0, fmt.Errorf("seq=%d: %w", seq, ErrTimeout)
	case ctx.Err() != nil:
		return 0, ctx.Err()
	case err != nil:
		return 0, fmt.Errorf("seq=%d: %w: %v (output: %s)", seq, ErrProcessFailed, err, strings.TrimSpace(string(out)))
	}

	rtt, err := parsePingRTT(string(out))
	if err != nil {
		return 0, fmt.Errorf("seq=%d: %w", seq, err)
	}
	return rtt, nil
}

// parsePingRTT extracts the first "time=<value>" from ping output. All the
// supported pings print it as fractional milliseconds.
func parsePingRTT(out string) (time.Duration, error) {
	_, rest, found := strings.Cut(out, "time=")
	if !found {
		return 0, ErrUnparsableOutput
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, ErrUnparsableOutput
	}
	ms, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "ms"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableOutput, fields[0])
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}
