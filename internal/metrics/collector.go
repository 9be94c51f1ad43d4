// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the full daemon statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Sweep         *OperationSnapshot
	Gate          *OperationSnapshot
	Completion    *OperationSnapshot
	Tools         *OperationSnapshot
	Delivery      *OperationSnapshot

	Responded  int64
	Declined   int64
	Suppressed int64
	Errors     int64
}

// Operation names for the collector.
const (
	OpSweep      = "sweep"
	OpGate       = "gate"
	OpCompletion = "completion"
	OpTools      = "tools"
	OpDelivery   = "delivery"
)

// Outcome names for tick counters.
const (
	OutcomeResponded  = "responded"
	OutcomeDeclined   = "declined"
	OutcomeSuppressed = "suppressed"
	OutcomeError      = "error"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	outcomes  map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		outcomes:  make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordOutcome bumps the counter for a tick outcome.
func (c *Collector) RecordOutcome(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Sweep:         snapshotOp(c.ops[OpSweep]),
		Gate:          snapshotOp(c.ops[OpGate]),
		Completion:    snapshotOp(c.ops[OpCompletion]),
		Tools:         snapshotOp(c.ops[OpTools]),
		Delivery:      snapshotOp(c.ops[OpDelivery]),
		Responded:     c.outcomes[OutcomeResponded],
		Declined:      c.outcomes[OutcomeDeclined],
		Suppressed:    c.outcomes[OutcomeSuppressed],
		Errors:        c.outcomes[OutcomeError],
	}
}
