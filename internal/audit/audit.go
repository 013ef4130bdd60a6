// Package audit keeps the append-only record of executed caregiver
// commands. Entries are immutable once written and are listed newest first.
// Caregiver names are denormalised into each entry so history survives
// caregiver removal.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies the capability a command exercised.
type Kind string

// Entry kinds.
const (
	KindView      Kind = "view"
	KindControl   Kind = "control"
	KindEmergency Kind = "emergency"
)

// Entry is one executed command in the audit trail.
type Entry struct {
	ID            string    `json:"id"`
	CaregiverID   string    `json:"caregiver_id"`
	CaregiverName string    `json:"caregiver_name"`
	Action        string    `json:"action"`
	Kind          Kind      `json:"kind"`
	DeviceID      string    `json:"device_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEntryID generates a short prefixed audit entry ID.
func NewEntryID() string {
	return "aud-" + uuid.NewString()[:8]
}

// Filter narrows a List call. Zero values mean no constraint.
type Filter struct {
	CaregiverID string
	Kind        Kind
	Limit       int
	Offset      int
}

// DefaultListLimit caps unbounded audit listings.
const DefaultListLimit = 100

// Recorder is the write side of the trail, the only side most of the
// system needs.
type Recorder interface {
	Append(ctx context.Context, e *Entry) error
}

// Repository is full trail access: append plus filtered reads.
type Repository interface {
	Recorder

	// List returns entries newest first, applying the filter.
	List(ctx context.Context, f Filter) ([]*Entry, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, f Filter) (int, error)
}
