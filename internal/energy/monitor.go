package energy

import (
	"context"
	"time"

	"github.com/hearthside/hearthside-core/internal/device"
)

// Sink receives periodic energy snapshots. Implementations must not block
// for long; slow destinations should buffer internally.
type Sink interface {
	RecordEnergy(ctx context.Context, snap Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, snap Snapshot)

// RecordEnergy calls f.
func (f SinkFunc) RecordEnergy(ctx context.Context, snap Snapshot) { f(ctx, snap) }

// Monitor periodically samples the device registry, computes a snapshot,
// and fans it out to the registered sinks.
type Monitor struct {
	registry *device.Registry
	tariff   Tariff
	interval time.Duration
	logger   device.Logger
	sinks    []Sink
	now      func() time.Time
}

// NewMonitor creates a monitor sampling at the given interval.
func NewMonitor(registry *device.Registry, tariff Tariff, interval time.Duration, logger device.Logger, sinks ...Sink) *Monitor {
	return &Monitor{
		registry: registry,
		tariff:   tariff,
		interval: interval,
		logger:   logger,
		sinks:    sinks,
		now:      time.Now,
	}
}

// AddSink registers an additional sink. Call before Run starts; the sink
// slice is not guarded by a lock.
func (m *Monitor) AddSink(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Sample computes a snapshot from the current registry state and delivers
// it to every sink.
func (m *Monitor) Sample(ctx context.Context) Snapshot {
	snap := Compute(m.registry.List(), m.tariff, m.now())
	for _, sink := range m.sinks {
		sink.RecordEnergy(ctx, snap)
	}
	return snap
}

// Snapshot computes the current snapshot without notifying sinks. Used by
// read paths that want fresh numbers on demand.
func (m *Monitor) Snapshot() Snapshot {
	return Compute(m.registry.List(), m.tariff, m.now())
}

// Run samples on the configured interval until the context is cancelled.
// An immediate first sample primes downstream consumers.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("energy monitor started", "interval", m.interval.String())

	m.Sample(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("energy monitor stopped")
			return
		case <-ticker.C:
			m.Sample(ctx)
		}
	}
}
