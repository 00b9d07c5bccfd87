// Package probe sends single reachability probes toward a fixed target.
// Two strategies implement the same contract: a raw-socket prober that
// builds its own ICMP echo frames, and an external prober that shells out
// to the system ping. Select picks one at startup based on privilege.
package probe

import (
	"context"
	"errors"
	"time"
)

// FailReason classifies a failed probe attempt for loss accounting and
// verbose display.
type FailReason string

const (
	FailReasonTimeout          FailReason = "timeout"
	FailReasonPermissionDenied FailReason = "permission-denied"
	FailReasonUnreachable      FailReason = "unreachable"
	FailReasonParseError       FailReason = "parse-error"
	FailReasonProcessError     FailReason = "process-error"
)

var (
	ErrTimeout              = errors.New("timeout waiting for reply")
	ErrPermissionDenied     = errors.New("raw socket permission denied")
	ErrUnreachable          = errors.New("destination unreachable")
	ErrProcessFailed        = errors.New("ping process failed")
	ErrUnparsableOutput     = errors.New("no rtt found in ping output")
	ErrPlatformNotSupported = errors.New("raw sockets not supported on this platform")
)

// Prober sends one probe at a time toward the target it was constructed
// for. Probe blocks until a matching reply arrives, the per-probe timeout
// expires, or ctx is canceled. Implementations carry no state between
// calls beyond the socket handle; Close releases it exactly once.
type Prober interface {
	Probe(ctx context.Context, seq uint16) (time.Duration, error)
	// Name identifies the strategy in logs and metrics ("raw" or "external").
	Name() string
	Close() error
}

// Outcome is the result of a single probe attempt, consumed immediately
// into a sample by the scheduler.
type Outcome struct {
	RTT  time.Duration
	Err  error
	Fail FailReason // empty on success
}

func (o Outcome) OK() bool { return o.Fail == "" }

// OutcomeOf converts a Probe return into an Outcome.
func OutcomeOf(rtt time.Duration, err error) Outcome {
	if err == nil {
		return Outcome{RTT: rtt}
	}
	return Outcome{Err: err, Fail: ReasonFor(err)}
}

// ReasonFor maps a probe error to its FailReason. Errors outside the
// sentinel set count as process failures: they indicate the probing
// machinery broke, not that the network dropped a packet.
func ReasonFor(err error) FailReason {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailReasonTimeout
	case errors.Is(err, ErrPermissionDenied):
		return FailReasonPermissionDenied
	case errors.Is(err, ErrUnreachable):
		return FailReasonUnreachable
	case errors.Is(err, ErrUnparsableOutput):
		return FailReasonParseError
	default:
		return FailReasonProcessError
	}
}
