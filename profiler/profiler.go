// Package profiler - Operation timing for survey stages.
package profiler

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/edaniels/golog"
)

// Timing holds the statistics of one named operation.
type Timing struct {
	Name  string
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Average returns the mean duration, or 0 before the first sample.
func (t Timing) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Profiler records how long named operations take.
type Profiler struct {
	mu      sync.Mutex
	start   time.Time
	order   []string
	timings map[string]*Timing
}

// New creates a profiler whose uptime starts now.
func New() *Profiler {
	return &Profiler{start: time.Now(), timings: map[string]*Timing{}}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

func (p *Profiler) record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.timings[name]
	if !ok {
		t = &Timing{Name: name, Min: d, Max: d}
		p.timings[name] = t
		p.order = append(p.order, name)
	}
	t.Count++
	t.Total += d
	if d < t.Min {
		t.Min = d
	}
	if d > t.Max {
		t.Max = d
	}
}

// Timings returns a snapshot of every operation in first-recorded order.
func (p *Profiler) Timings() []Timing {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Timing, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, *p.timings[name])
	}
	return out
}

// LogSummary writes one debug line per operation and an info line with the
// uptime and heap usage.
func (p *Profiler) LogSummary(logger golog.Logger) {
	for _, t := range p.Timings() {
		logger.Debugw("operation timing",
			"operation", t.Name,
			"count", t.Count,
			"avg", t.Average().Truncate(time.Microsecond),
			"min", t.Min.Truncate(time.Microsecond),
			"max", t.Max.Truncate(time.Microsecond),
		)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	logger.Infow("profile",
		"uptime", time.Since(p.start).Truncate(time.Millisecond),
		"heap_alloc", formatBytes(mem.HeapAlloc),
		"gc_cycles", mem.NumGC,
	)
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
