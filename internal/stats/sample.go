// Package stats maintains the rolling sample history and computes
// per-window aggregates. It is a pure data structure: time is always
// passed in, nothing here reads a clock, probes, or logs.
package stats

import "time"

// Sample is one completed probe cycle. Immutable once recorded; RTT is
// meaningful only when Loss is false.
type Sample struct {
	Sequence uint64
	SentAt   time.Time
	RTT      time.Duration
	Loss     bool
}

// Window is a fixed trailing interval over which aggregates are computed.
type Window struct {
	Name     string
	Duration time.Duration
}

var (
	Short  = Window{Name: "10 sec", Duration: 10 * time.Second}
	Medium = Window{Name: "1 min", Duration: time.Minute}
	Long   = Window{Name: "5 min", Duration: 5 * time.Minute}
)

// Windows lists the reporting windows from shortest to longest. Retention
// is bounded by the last entry.
var Windows = []Window{Short, Medium, Long}
