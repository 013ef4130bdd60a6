package access

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthside/hearthside-core/internal/audit"
	"github.com/hearthside/hearthside-core/internal/command"
	"github.com/hearthside/hearthside-core/internal/device"
)

// Controller is the decision point between caregivers and the home. Every
// command attempt passes through Execute, which checks the caregiver's
// lifecycle state and capabilities before any device state changes, and
// records successful executions in the audit trail.
type Controller struct {
	// mu serialises Execute so permission checks and the resulting device
	// mutation are one atomic step.
	mu sync.Mutex

	caregivers Repository
	devices    *device.Registry
	interp     *command.Interpreter
	trail      audit.Recorder
	logger     device.Logger
	now        func() time.Time
}

// NewController wires the controller to its collaborators.
func NewController(caregivers Repository, devices *device.Registry, interp *command.Interpreter, trail audit.Recorder, logger device.Logger) *Controller {
	return &Controller{
		caregivers: caregivers,
		devices:    devices,
		interp:     interp,
		trail:      trail,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute evaluates a command on behalf of a caregiver. The emergency flag
// requests emergency authority for the command; it requires the emergency
// capability and is recorded as such.
//
// Denied and unrecognised attempts change nothing: no device state, no
// last-access timestamp, no audit entry. Only an executed command mutates.
func (c *Controller) Execute(ctx context.Context, caregiverID, text string, emergency bool) (*CommandResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caregiver, err := c.caregivers.GetByID(ctx, caregiverID)
	if err != nil {
		// An unknown caregiver is indistinguishable from an inactive one
		// to the caller: both are denied, not errored.
		if errors.Is(err, ErrNotFound) {
			c.logger.Warn("command denied",
				"caregiver_id", caregiverID, "reason", ReasonNotActive)
			return &CommandResult{Outcome: OutcomeDenied, Message: ReasonNotActive, Command: text}, nil
		}
		return nil, err
	}

	if caregiver.Status != StatusActive {
		c.logger.Warn("command denied",
			"caregiver_id", caregiverID, "status", caregiver.Status, "reason", ReasonNotActive)
		return &CommandResult{Outcome: OutcomeDenied, Message: ReasonNotActive, Command: text}, nil
	}

	action, err := c.interp.Interpret(text)
	if err != nil {
		if errors.Is(err, command.ErrUnrecognized) {
			return &CommandResult{Outcome: OutcomeUnrecognized, Message: command.UnrecognizedMessage, Command: text}, nil
		}
		return nil, err
	}

	required := CapabilityControl
	reason := ReasonNoControl
	kind := audit.KindControl
	if emergency {
		required = CapabilityEmergency
		reason = ReasonNoEmergency
		kind = audit.KindEmergency
	}

	if !caregiver.HasCapability(required) {
		c.logger.Warn("command denied",
			"caregiver_id", caregiverID, "capability", required, "reason", reason)
		return &CommandResult{Outcome: OutcomeDenied, Message: reason, Command: text}, nil
	}

	if _, err := c.devices.Apply(ctx, action.DeviceID, action.Patch); err != nil {
		return nil, fmt.Errorf("apply command action: %w", err)
	}

	now := c.now().UTC()
	caregiver.LastAccessAt = &now
	caregiver.UpdatedAt = now
	if err := c.caregivers.Update(ctx, caregiver); err != nil {
		return nil, fmt.Errorf("record caregiver access: %w", err)
	}

	entry := &audit.Entry{
		CaregiverID:   caregiver.ID,
		CaregiverName: caregiver.Name,
		Action:        action.Description,
		Kind:          kind,
		DeviceID:      action.DeviceID,
		CreatedAt:     now,
	}
	if err := c.trail.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	c.logger.Info("command executed",
		"caregiver_id", caregiver.ID, "device_id", action.DeviceID,
		"action", action.Description, "emergency", emergency)

	return &CommandResult{
		Outcome: OutcomeExecuted,
		Message: action.Description,
		Command: text,
		Action: &ExecutedAction{
			DeviceID:    action.DeviceID,
			DeviceName:  action.DeviceName,
			Description: action.Description,
		},
	}, nil
}

// Add registers a new caregiver. Missing status defaults to pending and
// missing permissions to view only, so new caregivers can execute nothing
// until explicitly activated and granted control.
func (c *Controller) Add(ctx context.Context, caregiver *Caregiver) (*Caregiver, error) {
	if caregiver.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	for _, p := range caregiver.Permissions {
		if !ValidCapability(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCapability, p)
		}
	}

	if caregiver.ID == "" {
		caregiver.ID = "cg-" + uuid.NewString()[:8]
	}
	if caregiver.Status == "" {
		caregiver.Status = StatusPending
	}
	if !ValidStatus(caregiver.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, caregiver.Status)
	}
	if len(caregiver.Permissions) == 0 {
		caregiver.Permissions = []Capability{CapabilityView}
	}

	now := c.now().UTC()
	caregiver.CreatedAt = now
	caregiver.UpdatedAt = now

	if err := c.caregivers.Create(ctx, caregiver); err != nil {
		return nil, err
	}

	c.logger.Info("caregiver added",
		"caregiver_id", caregiver.ID, "status", caregiver.Status)
	return caregiver.Clone(), nil
}

// Get returns a caregiver by ID.
func (c *Controller) Get(ctx context.Context, id string) (*Caregiver, error) {
	return c.caregivers.GetByID(ctx, id)
}

// List returns all caregivers in registration order.
func (c *Controller) List(ctx context.Context) ([]*Caregiver, error) {
	return c.caregivers.List(ctx)
}

// Activate moves a pending caregiver to active. Inactive caregivers cannot
// be reactivated; a returning caregiver must be added anew.
func (c *Controller) Activate(ctx context.Context, id string) (*Caregiver, error) {
	return c.transition(ctx, id, StatusPending, StatusActive)
}

// Deactivate moves an active caregiver to inactive.
func (c *Controller) Deactivate(ctx context.Context, id string) (*Caregiver, error) {
	return c.transition(ctx, id, StatusActive, StatusInactive)
}

func (c *Controller) transition(ctx context.Context, id string, from, to Status) (*Caregiver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	caregiver, err := c.caregivers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caregiver.Status != from {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, caregiver.Status, to)
	}

	caregiver.Status = to
	caregiver.UpdatedAt = c.now().UTC()
	if err := c.caregivers.Update(ctx, caregiver); err != nil {
		return nil, err
	}

	c.logger.Info("caregiver status changed", "caregiver_id", id, "status", to)
	return caregiver, nil
}

// SetCapability grants or revokes a single capability.
func (c *Controller) SetCapability(ctx context.Context, id string, cap Capability, granted bool) (*Caregiver, error) {
	if !ValidCapability(cap) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCapability, cap)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	caregiver, err := c.caregivers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	has := caregiver.HasCapability(cap)
	switch {
	case granted && !has:
		caregiver.Permissions = append(caregiver.Permissions, cap)
	case !granted && has:
		perms := caregiver.Permissions[:0]
		for _, p := range caregiver.Permissions {
			if p != cap {
				perms = append(perms, p)
			}
		}
		caregiver.Permissions = perms
	default:
		return caregiver, nil
	}

	caregiver.UpdatedAt = c.now().UTC()
	if err := c.caregivers.Update(ctx, caregiver); err != nil {
		return nil, err
	}

	c.logger.Info("caregiver permissions changed",
		"caregiver_id", id, "capability", cap, "granted", granted)
	return caregiver, nil
}

// Remove deletes a caregiver. Audit entries referencing them survive
// because entries carry the caregiver name.
func (c *Controller) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.caregivers.Delete(ctx, id); err != nil {
		return err
	}
	c.logger.Info("caregiver removed", "caregiver_id", id)
	return nil
}
