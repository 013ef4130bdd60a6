package api

import (
	"context"

	"github.com/hearthside/hearthside-core/internal/energy"
)

// EnergyBroadcaster adapts the hub to energy.Sink so the energy monitor can
// stream snapshots to WebSocket clients on the energy channel.
type EnergyBroadcaster struct {
	hub *Hub
}

// NewEnergyBroadcaster wraps a hub.
func NewEnergyBroadcaster(hub *Hub) *EnergyBroadcaster {
	return &EnergyBroadcaster{hub: hub}
}

// RecordEnergy broadcasts the snapshot. Implements energy.Sink.
func (b *EnergyBroadcaster) RecordEnergy(_ context.Context, snap energy.Snapshot) {
	b.hub.Broadcast(ChannelEnergy, snap)
}
