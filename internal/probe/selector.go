package probe

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Hook for tests to force the raw constructor's outcome.
var newRaw = NewRaw

// Select chooses the probing strategy for the run: raw sockets when
// privilege allows, the external ping fallback otherwise. It runs once at
// startup and the choice is fixed for the process lifetime; privilege does
// not change mid-run, so there is no retry-and-upgrade.
func Select(log *slog.Logger, target *net.IPAddr, timeout time.Duration) (Prober, error) {
	raw, err := newRaw(RawConfig{Logger: log, Target: target, Timeout: timeout})
	if err == nil {
		log.Info("probe: using raw icmp sockets", "target", target.String())
		return raw, nil
	}
	if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrPlatformNotSupported) {
		return nil, fmt.Errorf("failed to set up raw prober: %w", err)
	}

	log.Info("probe: raw sockets unavailable, falling back to system ping", "reason", err)
	ext, err := NewExternal(ExternalConfig{Logger: log, Target: target, Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to set up external prober: %w", err)
	}
	return ext, nil
}
