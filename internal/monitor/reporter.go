package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/olekukonko/tablewriter"

	"github.com/malbeclabs/pingmon/internal/metrics"
	"github.com/malbeclabs/pingmon/internal/probe"
	"github.com/malbeclabs/pingmon/internal/stats"
)

// ansiClear repaints the terminal in place between summary renders.
const ansiClear = "\033[2J\033[H"

type ReporterConfig struct {
	Clock    clockwork.Clock
	Engine   *stats.Engine
	Interval time.Duration

	Target        string
	TargetIP      string
	Strategy      string
	ProbeInterval time.Duration

	Verbose bool
	Out     io.Writer
}

// Reporter is responsible for rendering the aggregated statistics at its own
// cadence, independent of the probe loop, and for mirroring the same
// aggregates into the Prometheus metrics. In verbose mode it additionally
// prints one line per probe as results arrive.
type Reporter struct {
	log *slog.Logger
	cfg *ReporterConfig

	// outMu serializes writes to Out between the report loop and the
	// per-sample callback running on the scheduler goroutine.
	outMu sync.Mutex
}

func NewReporter(log *slog.Logger, cfg *ReporterConfig) *Reporter {
	return &Reporter{log: log, cfg: cfg}
}

func (r *Reporter) Run(ctx context.Context) error {
	r.log.Info("Starting report loop")

	metrics.MetricStrategy.WithLabelValues(r.cfg.TargetIP, r.cfg.Strategy).Set(1)

	ticker := r.cfg.Clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Report loop done")
			return nil
		case <-ticker.Chan():
			r.Report()
		}
	}
}

// Report renders one snapshot of all windows and publishes it as metrics.
func (r *Reporter) Report() {
	now := r.cfg.Clock.Now().UTC()
	aggs := r.cfg.Engine.SnapshotAll(now)

	for i, w := range stats.Windows {
		r.publish(w, aggs[i])
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()

	if !r.cfg.Verbose {
		fmt.Fprint(r.cfg.Out, ansiClear)
	}
	r.renderSummary(now, aggs)
}

// OnSample publishes per-probe metrics and, in verbose mode, prints one line
// per result. It runs on the scheduler goroutine.
func (r *Reporter) OnSample(sample stats.Sample, outcome probe.Outcome) {
	result := "ok"
	if !outcome.OK() {
		result = string(outcome.Fail)
	}
	metrics.MetricProbes.WithLabelValues(r.cfg.TargetIP, result).Inc()

	if !r.cfg.Verbose {
		return
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()

	ts := sample.SentAt.Format("15:04:05")
	if outcome.OK() {
		fmt.Fprintf(r.cfg.Out, "[%s] ✓ %s: seq=%d time=%s\n", ts, r.cfg.TargetIP, sample.Sequence, fmtMS(outcome.RTT))
	} else {
		fmt.Fprintf(r.cfg.Out, "[%s] ✗ %s: seq=%d %s\n", ts, r.cfg.TargetIP, sample.Sequence, outcome.Fail)
	}
}

func (r *Reporter) renderSummary(now time.Time, aggs []stats.WindowAggregate) {
	out := r.cfg.Out

	fmt.Fprintf(out, "Ping Monitor - Target: %s (%s)\n", r.cfg.Target, r.cfg.TargetIP)
	fmt.Fprintf(out, "Strategy: %s | Interval: %s | Time: %s\n", r.cfg.Strategy, r.cfg.ProbeInterval, now.Format("2006-01-02 15:04:05"))

	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{"Window", "Count", "Loss", "Mean", "Min", "Max", "Jitter"})

	for i, w := range stats.Windows {
		table.Append(summaryRow(w, aggs[i]))
	}
	table.Render()

	if r.cfg.Verbose {
		fmt.Fprintln(out, "Press Ctrl+C to stop | Packet responses shown below:")
	} else {
		fmt.Fprintln(out, "Press Ctrl+C to stop")
	}
}

// publish mirrors one window aggregate into the Prometheus gauges.
func (r *Reporter) publish(w stats.Window, agg stats.WindowAggregate) {
	ip := r.cfg.TargetIP
	metrics.MetricSamples.WithLabelValues(ip, w.Name).Set(float64(agg.Count))
	metrics.MetricLoss.WithLabelValues(ip, w.Name).Set(agg.LossRate * 100)
	metrics.MetricRTT.WithLabelValues(ip, w.Name, "mean").Set(float64(agg.RTTMean))
	metrics.MetricRTT.WithLabelValues(ip, w.Name, "min").Set(float64(agg.RTTMin))
	metrics.MetricRTT.WithLabelValues(ip, w.Name, "max").Set(float64(agg.RTTMax))
	metrics.MetricRTT.WithLabelValues(ip, w.Name, "jitter").Set(float64(agg.Jitter))
}

func summaryRow(w stats.Window, agg stats.WindowAggregate) []string {
	if agg.Count == 0 {
		return []string{w.Name, "0", "-", "-", "-", "-", "-"}
	}
	row := []string{
		w.Name,
		fmt.Sprintf("%d", agg.Count),
		fmt.Sprintf("%.1f%% (%d)", agg.LossRate*100, agg.LossCount),
	}
	if agg.Count == agg.LossCount {
		// No successful probes in the window, so there are no RTTs to show.
		return append(row, "-", "-", "-", "-")
	}
	return append(row, fmtMS(agg.RTTMean), fmtMS(agg.RTTMin), fmtMS(agg.RTTMax), fmtMS(agg.Jitter))
}

// fmtMS renders a duration as fractional milliseconds.
func fmtMS(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
