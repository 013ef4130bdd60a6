package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging interface the registry needs. Satisfied by
// *logging.Logger and *slog.Logger alike.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ChangeFunc is invoked after a device state change has been persisted.
// Callbacks receive an independent copy and run on the mutating goroutine,
// so they must not block for long.
type ChangeFunc func(Device)

// Registry holds the in-memory authoritative view of all devices and
// coordinates reads, writes, and persistence. All mutations go through
// Apply so clamping and ordering rules are enforced in one place.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Device
	ordered []string // IDs in registration order

	repo     Repository
	logger   Logger
	onChange []ChangeFunc
	now      func() time.Time
}

// NewRegistry creates a registry backed by the given repository.
func NewRegistry(repo Repository, logger Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:   make(map[string]*Device),
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// OnChange registers a callback for persisted state changes. Must be called
// before the registry is shared across goroutines.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.onChange = append(r.onChange, fn)
}

// Load populates the cache from the repository. Called once at startup.
func (r *Registry) Load(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]*Device, len(devices))
	r.ordered = r.ordered[:0]
	for _, d := range devices {
		r.byID[d.ID] = d
		r.ordered = append(r.ordered, d.ID)
	}

	r.logger.Info("device registry loaded", "count", len(devices))
	return nil
}

// Get returns a copy of the device with the given ID.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

// List returns copies of all devices in registration order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.ordered))
	for _, id := range r.ordered {
		out = append(out, *r.byID[id].Clone())
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// FirstOfType returns a copy of the earliest-registered device of the given
// type, or ErrNotFound when none exists.
func (r *Registry) FirstOfType(t Type) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.ordered {
		if d := r.byID[id]; d.Type == t {
			return d.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Register validates and persists a new device, then adds it to the cache.
// A missing ID is generated. Setpoint fields outside the device's type are
// cleared rather than rejected.
func (r *Registry) Register(ctx context.Context, d *Device) (*Device, error) {
	if err := validate(d); err != nil {
		return nil, err
	}

	if d.ID == "" {
		d.ID = "dev-" + uuid.NewString()[:8]
	}
	now := r.now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	normalize(d)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; exists {
		return nil, ErrDuplicateID
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	r.byID[d.ID] = d
	r.ordered = append(r.ordered, d.ID)

	r.logger.Info("device registered", "device_id", d.ID, "type", d.Type, "room", d.Room)
	return d.Clone(), nil
}

// Apply merges a partial patch into the identified device, clamps level and
// temperature into their allowed ranges, persists the result, and returns a
// copy of the new state. Patch fields outside the device's control
// dimensions are ignored. Applying the same patch twice yields the same
// state. Turning a device off retains its setpoints.
func (r *Registry) Apply(ctx context.Context, id string, p Patch) (*Device, error) {
	if p.IsZero() {
		return nil, ErrEmptyPatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(ctx, id, p)
}

// applyLocked is Apply's body. Callers must hold r.mu for writing.
func (r *Registry) applyLocked(ctx context.Context, id string, p Patch) (*Device, error) {
	current, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if p.IsOn != nil {
		next.IsOn = *p.IsOn
	}
	if p.TemperatureC != nil && next.HasTemperature() {
		t := clamp(*p.TemperatureC, MinTemperatureC, MaxTemperatureC)
		next.TemperatureC = &t
	}
	if p.Level != nil && next.HasLevel() {
		l := clamp(*p.Level, MinLevel, MaxLevel)
		next.Level = &l
	}
	next.UpdatedAt = r.now().UTC()

	if err := r.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	r.byID[id] = next

	r.logger.Info("device updated",
		"device_id", id, "is_on", next.IsOn,
		"temperature_c", ptrLog(next.TemperatureC), "level", ptrLog(next.Level))

	snapshot := *next.Clone()
	for _, fn := range r.onChange {
		fn(snapshot)
	}
	return next.Clone(), nil
}

// Toggle sets the device's on/off state and returns the new state. A nil on
// flips the current state; a non-nil on sets it absolutely. The read and
// write happen under one lock so a concurrent patch cannot slip between
// them.
func (r *Registry) Toggle(ctx context.Context, id string, on *bool) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	target := !current.IsOn
	if on != nil {
		target = *on
	}
	return r.applyLocked(ctx, id, Patch{IsOn: Bool(target)})
}

// Remove deletes a device from persistence and the cache.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	delete(r.byID, id)
	for i, existing := range r.ordered {
		if existing == id {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}

	r.logger.Info("device removed", "device_id", id)
	return nil
}

func validate(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrValidation)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(d.Name) > 100 {
		return fmt.Errorf("%w: name exceeds 100 characters", ErrValidation)
	}
	if d.RatedPowerWatts < 0 {
		return fmt.Errorf("%w: rated power must be non-negative", ErrValidation)
	}

	valid := false
	for _, t := range AllTypes() {
		if d.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q", ErrInvalidType, d.Type)
	}
	return nil
}

// normalize clears setpoint fields that do not apply to the device type and
// clamps those that do.
func normalize(d *Device) {
	if d.HasTemperature() {
		d.Level = nil
		if d.TemperatureC != nil {
			t := clamp(*d.TemperatureC, MinTemperatureC, MaxTemperatureC)
			d.TemperatureC = &t
		}
		return
	}
	d.TemperatureC = nil
	if !d.HasLevel() {
		d.Level = nil
		return
	}
	if d.Level != nil {
		l := clamp(*d.Level, MinLevel, MaxLevel)
		d.Level = &l
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ptrLog(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
