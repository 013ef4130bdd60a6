package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hearthside/hearthside-core/internal/audit"
	"github.com/hearthside/hearthside-core/internal/command"
	"github.com/hearthside/hearthside-core/internal/device"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// MockCaregiverRepository is an in-memory caregiver store for tests.
type MockCaregiverRepository struct {
	mu         sync.Mutex
	caregivers map[string]*Caregiver
	order      []string
}

func NewMockCaregiverRepository() *MockCaregiverRepository {
	return &MockCaregiverRepository{caregivers: make(map[string]*Caregiver)}
}

func (m *MockCaregiverRepository) GetByID(_ context.Context, id string) (*Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caregivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MockCaregiverRepository) List(_ context.Context) ([]*Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Caregiver, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.caregivers[id].Clone())
	}
	return out, nil
}

func (m *MockCaregiverRepository) Create(_ context.Context, c *Caregiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[c.ID]; ok {
		return ErrDuplicateID
	}
	m.caregivers[c.ID] = c.Clone()
	m.order = append(m.order, c.ID)
	return nil
}

func (m *MockCaregiverRepository) Update(_ context.Context, c *Caregiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[c.ID]; !ok {
		return ErrNotFound
	}
	m.caregivers[c.ID] = c.Clone()
	return nil
}

func (m *MockCaregiverRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[id]; !ok {
		return ErrNotFound
	}
	delete(m.caregivers, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// mockTrail records appended audit entries in memory.
type mockTrail struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (m *mockTrail) Append(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockTrail) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// deviceRepo is an in-memory device.Repository.
type deviceRepo struct {
	devices map[string]*device.Device
	order   []string
}

func newDeviceRepo() *deviceRepo { return &deviceRepo{devices: make(map[string]*device.Device)} }

func (m *deviceRepo) GetByID(_ context.Context, id string) (*device.Device, error) {
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	return d.Clone(), nil
}

func (m *deviceRepo) List(_ context.Context) ([]*device.Device, error) {
	out := make([]*device.Device, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.devices[id].Clone())
	}
	return out, nil
}

func (m *deviceRepo) Create(_ context.Context, d *device.Device) error {
	m.devices[d.ID] = d.Clone()
	m.order = append(m.order, d.ID)
	return nil
}

func (m *deviceRepo) Update(_ context.Context, d *device.Device) error {
	m.devices[d.ID] = d.Clone()
	return nil
}

func (m *deviceRepo) Delete(_ context.Context, id string) error { delete(m.devices, id); return nil }
func (m *deviceRepo) Count(_ context.Context) (int, error)      { return len(m.order), nil }

type fixture struct {
	controller *Controller
	caregivers *MockCaregiverRepository
	devices    *device.Registry
	trail      *mockTrail
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := device.NewRegistry(newDeviceRepo(), nopLogger{})
	if err := device.SeedDefaults(context.Background(), registry); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	caregivers := NewMockCaregiverRepository()
	trail := &mockTrail{}
	controller := NewController(caregivers, registry, command.NewInterpreter(registry), trail, nopLogger{})

	return &fixture{controller: controller, caregivers: caregivers, devices: registry, trail: trail}
}

func (f *fixture) addCaregiver(t *testing.T, status Status, perms ...Capability) *Caregiver {
	t.Helper()
	c, err := f.controller.Add(context.Background(), &Caregiver{
		Name:        "Sarah Chen",
		Email:       "sarah@example.com",
		Role:        "Family",
		Status:      status,
		Permissions: perms,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return c
}

func TestAddDefaults(t *testing.T) {
	f := newFixture(t)

	c, err := f.controller.Add(context.Background(), &Caregiver{Name: "Sarah Chen"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if c.ID == "" {
		t.Error("Add() did not assign an ID")
	}
	if c.Status != StatusPending {
		t.Errorf("Status = %s, want %s", c.Status, StatusPending)
	}
	if len(c.Permissions) != 1 || c.Permissions[0] != CapabilityView {
		t.Errorf("Permissions = %v, want view only", c.Permissions)
	}
	if c.LastAccessAt != nil {
		t.Error("LastAccessAt set on new caregiver")
	}
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.controller.Add(context.Background(), &Caregiver{}); !errors.Is(err, ErrValidation) {
		t.Errorf("Add(no name) error = %v, want ErrValidation", err)
	}
	if _, err := f.controller.Add(context.Background(), &Caregiver{
		Name: "x", Permissions: []Capability{"root"},
	}); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("Add(bad capability) error = %v, want ErrInvalidCapability", err)
	}
}

func TestExecuteSuccess(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView, CapabilityControl)

	res, err := f.controller.Execute(context.Background(), c.ID, "turn on lights", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeExecuted {
		t.Fatalf("Outcome = %s, want %s", res.Outcome, OutcomeExecuted)
	}
	if res.Message != "Turned on lights" {
		t.Errorf("Message = %q", res.Message)
	}
	if res.Action == nil || res.Action.DeviceID == "" {
		t.Fatal("Action missing from executed result")
	}

	d, err := f.devices.Get(res.Action.DeviceID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !d.IsOn {
		t.Error("device not turned on")
	}

	updated, err := f.controller.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Get(caregiver) error = %v", err)
	}
	if updated.LastAccessAt == nil {
		t.Error("LastAccessAt not stamped")
	}

	if f.trail.len() != 1 {
		t.Fatalf("audit entries = %d, want 1", f.trail.len())
	}
	entry := f.trail.entries[0]
	if entry.Kind != audit.KindControl {
		t.Errorf("audit kind = %s, want %s", entry.Kind, audit.KindControl)
	}
	if entry.CaregiverName != "Sarah Chen" {
		t.Errorf("audit caregiver name = %q", entry.CaregiverName)
	}
	if entry.Action != "Turned on lights" {
		t.Errorf("audit action = %q", entry.Action)
	}
}

func TestExecuteDeniedWhenNotActive(t *testing.T) {
	f := newFixture(t)

	// Permissions alone are not enough; the caregiver must also be active.
	for _, status := range []Status{StatusPending, StatusInactive} {
		c := f.addCaregiver(t, status, CapabilityView, CapabilityControl, CapabilityEmergency)

		res, err := f.controller.Execute(context.Background(), c.ID, "turn off lights", false)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if res.Outcome != OutcomeDenied {
			t.Errorf("status %s: Outcome = %s, want %s", status, res.Outcome, OutcomeDenied)
		}
		if res.Message != ReasonNotActive {
			t.Errorf("status %s: Message = %q, want %q", status, res.Message, ReasonNotActive)
		}
	}

	if f.trail.len() != 0 {
		t.Errorf("audit entries = %d, want 0 for denied attempts", f.trail.len())
	}
}

func TestExecuteDeniedWithoutControl(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView)

	lights, err := f.devices.FirstOfType(device.TypeLight)
	if err != nil {
		t.Fatalf("FirstOfType() error = %v", err)
	}
	wasOn := lights.IsOn

	res, err := f.controller.Execute(context.Background(), c.ID, "turn off lights", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeDenied || res.Message != ReasonNoControl {
		t.Errorf("result = %s/%q, want denied/%q", res.Outcome, res.Message, ReasonNoControl)
	}

	// Denial leaves everything untouched.
	after, _ := f.devices.Get(lights.ID)
	if after.IsOn != wasOn {
		t.Error("device mutated by denied command")
	}
	updated, _ := f.controller.Get(context.Background(), c.ID)
	if updated.LastAccessAt != nil {
		t.Error("LastAccessAt stamped by denied command")
	}
	if f.trail.len() != 0 {
		t.Errorf("audit entries = %d, want 0", f.trail.len())
	}
}

func TestExecuteEmergencyRequiresCapability(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView, CapabilityControl)

	res, err := f.controller.Execute(context.Background(), c.ID, "turn off heater", true)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeDenied || res.Message != ReasonNoEmergency {
		t.Errorf("result = %s/%q, want denied/%q", res.Outcome, res.Message, ReasonNoEmergency)
	}
}

func TestExecuteEmergencyAuditKind(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView, CapabilityEmergency)

	res, err := f.controller.Execute(context.Background(), c.ID, "turn off heater", true)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeExecuted {
		t.Fatalf("Outcome = %s, want executed", res.Outcome)
	}
	if f.trail.len() != 1 || f.trail.entries[0].Kind != audit.KindEmergency {
		t.Errorf("audit kind = %v, want %s", f.trail.entries, audit.KindEmergency)
	}
}

func TestExecuteUnrecognized(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView, CapabilityControl)

	res, err := f.controller.Execute(context.Background(), c.ID, "make me a sandwich", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeUnrecognized {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeUnrecognized)
	}
	if res.Message != command.UnrecognizedMessage {
		t.Errorf("Message = %q, want %q", res.Message, command.UnrecognizedMessage)
	}
	if f.trail.len() != 0 {
		t.Errorf("audit entries = %d, want 0 for unrecognised command", f.trail.len())
	}
}

func TestExecuteUnknownCaregiver(t *testing.T) {
	f := newFixture(t)

	res, err := f.controller.Execute(context.Background(), "missing", "turn on lights", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeDenied {
		t.Errorf("Outcome = %s, want denied", res.Outcome)
	}
	if res.Message != ReasonNotActive {
		t.Errorf("Message = %q, want %q", res.Message, ReasonNotActive)
	}
	if f.trail.len() != 0 {
		t.Errorf("audit entries = %d, want 0 for unknown caregiver", f.trail.len())
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusPending, CapabilityView)

	activated, err := f.controller.Activate(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if activated.Status != StatusActive {
		t.Errorf("Status = %s, want active", activated.Status)
	}

	// Activating twice is invalid.
	if _, err := f.controller.Activate(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Activate(active) error = %v, want ErrInvalidTransition", err)
	}

	deactivated, err := f.controller.Deactivate(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if deactivated.Status != StatusInactive {
		t.Errorf("Status = %s, want inactive", deactivated.Status)
	}

	// Inactive is terminal; there is no path back to active.
	if _, err := f.controller.Activate(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Activate(inactive) error = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.controller.Deactivate(context.Background(), c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Deactivate(inactive) error = %v, want ErrInvalidTransition", err)
	}
}

func TestSetCapability(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView)

	granted, err := f.controller.SetCapability(context.Background(), c.ID, CapabilityControl, true)
	if err != nil {
		t.Fatalf("SetCapability(grant) error = %v", err)
	}
	if !granted.HasCapability(CapabilityControl) {
		t.Error("control capability not granted")
	}

	// Granting again is a no-op, not a duplicate.
	again, err := f.controller.SetCapability(context.Background(), c.ID, CapabilityControl, true)
	if err != nil {
		t.Fatalf("SetCapability(regrant) error = %v", err)
	}
	if len(again.Permissions) != 2 {
		t.Errorf("Permissions = %v, want exactly view+control", again.Permissions)
	}

	revoked, err := f.controller.SetCapability(context.Background(), c.ID, CapabilityControl, false)
	if err != nil {
		t.Fatalf("SetCapability(revoke) error = %v", err)
	}
	if revoked.HasCapability(CapabilityControl) {
		t.Error("control capability not revoked")
	}

	if _, err := f.controller.SetCapability(context.Background(), c.ID, "root", true); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("SetCapability(bad) error = %v, want ErrInvalidCapability", err)
	}
}

func TestRevokedCapabilityDeniesImmediately(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView, CapabilityControl)

	if _, err := f.controller.SetCapability(context.Background(), c.ID, CapabilityControl, false); err != nil {
		t.Fatalf("SetCapability() error = %v", err)
	}

	res, err := f.controller.Execute(context.Background(), c.ID, "turn on lights", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outcome != OutcomeDenied || res.Message != ReasonNoControl {
		t.Errorf("result = %s/%q, want denied/%q", res.Outcome, res.Message, ReasonNoControl)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	c := f.addCaregiver(t, StatusActive, CapabilityView, CapabilityControl)

	// Generate history, then remove.
	if _, err := f.controller.Execute(context.Background(), c.ID, "turn on lights", false); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := f.controller.Remove(context.Background(), c.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := f.controller.Get(context.Background(), c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(removed) error = %v, want ErrNotFound", err)
	}

	// History survives removal with the name intact.
	if f.trail.len() != 1 || f.trail.entries[0].CaregiverName != "Sarah Chen" {
		t.Errorf("audit trail lost caregiver name after removal")
	}
}
