package probe

import (
	"errors"
	"log/slog"
	"net"
	"time"
)

// RawConfig configures the raw-socket prober. Only the linux build opens
// raw sockets; elsewhere NewRaw reports ErrPlatformNotSupported and the
// selector falls back to the external prober.
type RawConfig struct {
	Logger  *slog.Logger
	Target  *net.IPAddr   // required: resolved IPv4 destination
	Timeout time.Duration // required: per-probe reply deadline
}

func (cfg *RawConfig) Validate() error {
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
