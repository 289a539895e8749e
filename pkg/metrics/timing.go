// Package metrics keeps in-process timings and counters for the export
// pipeline: flattening, tile planning, surface rendering, viewport capture,
// compositing and PNG encoding. Collection is on unless PMX_METRICS=0.
//
//	defer metrics.Timer(metrics.FrameCapture)()
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("PMX_METRICS") != "0")
}

// Enabled reports whether samples are recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled switches collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric aggregates durations of one operation. Safe for concurrent use.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	min   atomic.Int64 // 0 until the first sample
}

func newTiming(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for old := m.max.Load(); ns > old && !m.max.CompareAndSwap(old, ns); old = m.max.Load() {
	}
	for old := m.min.Load(); (old == 0 || ns < old) && !m.min.CompareAndSwap(old, ns); old = m.min.Load() {
	}
}

// Name returns the metric name used in reports.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	count, total := m.count.Load(), m.total.Load()
	s := TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: ms(total),
		MaxMs:   ms(m.max.Load()),
		MinMs:   ms(m.min.Load()),
	}
	if count > 0 {
		s.AvgMs = ms(total / count)
	}
	return s
}

// Reset drops all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

func ms(ns int64) float64 { return float64(ns) / 1e6 }

// TimingStats is a snapshot of one TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing m and returns the func that records the sample.
func Timer(m *TimingMetric) func() {
	if m == nil || !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

// Counter counts events such as captured frames.
type Counter struct {
	name string
	n    atomic.Int64
}

// Add increments the counter by delta.
func (c *Counter) Add(delta int64) {
	if enabled.Load() {
		c.n.Add(delta)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Name returns the counter name used in reports.
func (c *Counter) Name() string { return c.name }

// Timings.
var (
	HeaderFlatten  = newTiming("header_flatten")
	TileBuild      = newTiming("tile_build")
	SurfaceRender  = newTiming("surface_render")
	FrameCapture   = newTiming("frame_capture")
	FrameComposite = newTiming("frame_composite")
	ImageEncode    = newTiming("image_encode")
	Export         = newTiming("export")
)

// Counters.
var (
	FramesExported = &Counter{name: "frames_exported"}
	BlankFrames    = &Counter{name: "blank_frames"}
	Captures       = &Counter{name: "captures"}
	TilesWritten   = &Counter{name: "tiles_written"}
)

var (
	timings  = []*TimingMetric{HeaderFlatten, TileBuild, SurfaceRender, FrameCapture, FrameComposite, ImageEncode, Export}
	counters = []*Counter{FramesExported, BlankFrames, Captures, TilesWritten}
)

// AllTimingMetrics returns every registered timing.
func AllTimingMetrics() []*TimingMetric { return timings }

// ResetAll clears every timing and counter.
func ResetAll() {
	for _, m := range timings {
		m.Reset()
	}
	for _, c := range counters {
		c.n.Store(0)
	}
}

// AllTimingStats returns stats for the timings that have samples.
func AllTimingStats() []TimingStats {
	stats := make([]TimingStats, 0, len(timings))
	for _, m := range timings {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// Report is everything collected so far.
type Report struct {
	Timings  []TimingStats    `json:"timings"`
	Counters map[string]int64 `json:"counters"`
}

// Snapshot returns the recorded timings and all counters.
func Snapshot() Report {
	r := Report{Timings: AllTimingStats(), Counters: make(map[string]int64, len(counters))}
	for _, c := range counters {
		r.Counters[c.name] = c.Value()
	}
	return r
}
