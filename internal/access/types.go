package access

import "time"

// Capability is a grantable permission over home control.
type Capability string

// Capabilities.
const (
	CapabilityView      Capability = "view"
	CapabilityControl   Capability = "control"
	CapabilityEmergency Capability = "emergency"
)

// AllCapabilities returns all valid capability values.
func AllCapabilities() []Capability {
	return []Capability{CapabilityView, CapabilityControl, CapabilityEmergency}
}

// ValidCapability reports whether c is a known capability.
func ValidCapability(c Capability) bool {
	return c == CapabilityView || c == CapabilityControl || c == CapabilityEmergency
}

// Status is a caregiver's lifecycle state. New caregivers start pending and
// must be activated before executing anything. Deactivated caregivers stay
// inactive; there is no path back to active.
type Status string

// Lifecycle states.
const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusActive || s == StatusInactive
}

// Caregiver is a person granted scoped access to home control.
type Caregiver struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Role        string       `json:"role"`
	Permissions []Capability `json:"permissions"`
	Status      Status       `json:"status"`

	// LastAccessAt records the most recent successful command execution.
	// Denied and unrecognised attempts never touch it.
	LastAccessAt *time.Time `json:"last_access_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCapability reports whether the caregiver holds the given capability.
func (c *Caregiver) HasCapability(cap Capability) bool {
	for _, p := range c.Permissions {
		if p == cap {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (c *Caregiver) Clone() *Caregiver {
	if c == nil {
		return nil
	}
	cpy := *c
	cpy.Permissions = append([]Capability(nil), c.Permissions...)
	if c.LastAccessAt != nil {
		t := *c.LastAccessAt
		cpy.LastAccessAt = &t
	}
	return &cpy
}

// Outcome classifies a command attempt.
type Outcome string

// Command outcomes.
const (
	OutcomeExecuted     Outcome = "executed"
	OutcomeDenied       Outcome = "denied"
	OutcomeUnrecognized Outcome = "unrecognized"
)

// ExecutedAction describes the device change an executed command produced.
type ExecutedAction struct {
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	Description string `json:"description"`
}

// CommandResult is the outcome of one command attempt by a caregiver.
type CommandResult struct {
	Outcome Outcome `json:"outcome"`

	// Message is the user-facing explanation: the action description on
	// success, the denial reason, or the fixed unrecognised reply.
	Message string `json:"message"`

	// Command echoes the text that was evaluated.
	Command string `json:"command"`

	// Action is set only when Outcome is OutcomeExecuted.
	Action *ExecutedAction `json:"action,omitempty"`
}
