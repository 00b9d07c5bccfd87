package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/pingmon/internal/metrics"
	"github.com/malbeclabs/pingmon/internal/monitor"
	"github.com/malbeclabs/pingmon/internal/probe"

	_ "net/http/pprof"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultProbeTimeout = 1 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	showHelpFlag := flag.BoolP("help", "h", false, "show usage and exit")
	showVersionFlag := flag.Bool("version", false, "show version and exit")
	verboseFlag := flag.BoolP("verbose", "v", false, "show individual packet responses and debug logs")
	enablePprofFlag := flag.Bool("enable-pprof", false, "enable pprof server")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to serve prometheus metrics on (empty to disable)")
	flag.Parse()

	if *showHelpFlag {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		os.Exit(0)
	}

	log := newLogger(*verboseFlag)

	// Load environment overrides from a .env file when present.
	_ = godotenv.Load()

	target := os.Getenv("TARGET")
	if target == "" {
		log.Error("TARGET environment variable is required")
		return fmt.Errorf("TARGET environment variable is required")
	}

	interval, err := envDurationMS("PING_INTERVAL_MS", monitor.DefaultProbeInterval)
	if err != nil {
		log.Error("failed to parse PING_INTERVAL_MS", "error", err)
		return err
	}

	timeout, err := envDurationMS("PING_TIMEOUT_MS", defaultProbeTimeout)
	if err != nil {
		log.Error("failed to parse PING_TIMEOUT_MS", "error", err)
		return err
	}

	targetIP, err := net.ResolveIPAddr("ip4", target)
	if err != nil {
		log.Error("failed to resolve target", "target", target, "error", err)
		return fmt.Errorf("failed to resolve target %q: %w", target, err)
	}

	// Start pprof server
	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			err := http.ListenAndServe("localhost:6060", nil)
			if err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Set up prometheus metrics server if enabled.
	if *metricsAddrFlag != "" {
		metrics.MetricBuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("Failed to start prometheus metrics server listener", "error", err)
				os.Exit(1)
			}
			log.Info("Prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("Failed to start prometheus metrics server", "error", err)
				os.Exit(1)
			}
		}()
	}

	prober, err := probe.Select(log, targetIP, timeout)
	if err != nil {
		log.Error("failed to set up prober", "error", err)
		return err
	}

	m, err := monitor.New(log, monitor.Config{
		Clock:         clockwork.NewRealClock(),
		Prober:        prober,
		Target:        target,
		TargetIP:      targetIP,
		ProbeInterval: interval,
		Verbose:       *verboseFlag,
	})
	if err != nil {
		log.Error("failed to create monitor", "error", err)
		_ = prober.Close()
		return err
	}

	if err := m.Run(ctx); err != nil {
		log.Error("monitor: error", "error", err)
		return err
	}

	log.Info("context done, stopping")
	return nil
}

// envDurationMS reads a millisecond-denominated environment variable,
// falling back to def when unset. Explicit values must be positive integers.
func envDurationMS(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer of milliseconds", name, raw)
	}
	return time.Duration(v) * time.Millisecond, nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
