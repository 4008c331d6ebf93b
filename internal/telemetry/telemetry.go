// Package telemetry collects lightweight in-process counters for the game
// loop — bytes moved, active connections, ticks over budget — and emits
// them as a single structured log line once per second. It is a
// process-local monitor, not a metrics-exporter integration.
package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Sampler accumulates counters that any goroutine may add to, and reports
// them on a fixed cadence. Reports are monotonic-interval gated by the
// caller invoking MaybeSample; Sampler itself does not run a timer.
type Sampler struct {
	bytesRead       atomic.Int64
	bytesWritten    atomic.Int64
	ticksOverBudget atomic.Int64
	poolHits        atomic.Int64
	poolMisses      atomic.Int64

	lastSample time.Time
}

// New constructs a Sampler with its clock anchored at now.
func New(now time.Time) *Sampler {
	return &Sampler{lastSample: now}
}

// AddBytesRead accumulates n bytes read, for any connection.
func (s *Sampler) AddBytesRead(n int) {
	s.bytesRead.Add(int64(n))
}

// AddBytesWritten accumulates n bytes written, for any connection.
func (s *Sampler) AddBytesWritten(n int) {
	s.bytesWritten.Add(int64(n))
}

// RecordTickOverBudget increments the over-budget tick counter.
func (s *Sampler) RecordTickOverBudget() {
	s.ticksOverBudget.Add(1)
}

// RecordPoolHit implements bufpool.Recorder: a Get call was served from a
// pooled buffer with sufficient capacity.
func (s *Sampler) RecordPoolHit() {
	s.poolHits.Add(1)
}

// RecordPoolMiss implements bufpool.Recorder: a Get call had to allocate a
// fresh buffer because none pooled was large enough.
func (s *Sampler) RecordPoolMiss() {
	s.poolMisses.Add(1)
}

// MaybeSample emits one structured log line and resets the interval
// counters if at least interval has elapsed since the last sample.
func (s *Sampler) MaybeSample(now time.Time, interval time.Duration, activeConnections, activePlayers int, logger *slog.Logger) {
	if now.Sub(s.lastSample) < interval {
		return
	}
	s.lastSample = now

	logger.Info("telemetry",
		"bytes_read", s.bytesRead.Swap(0),
		"bytes_written", s.bytesWritten.Swap(0),
		"ticks_over_budget", s.ticksOverBudget.Swap(0),
		"pool_hits", s.poolHits.Swap(0),
		"pool_misses", s.poolMisses.Swap(0),
		"active_connections", activeConnections,
		"active_players", activePlayers,
	)
}
