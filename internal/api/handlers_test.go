package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hearthside/hearthside-core/internal/access"
	"github.com/hearthside/hearthside-core/internal/audit"
	"github.com/hearthside/hearthside-core/internal/command"
	"github.com/hearthside/hearthside-core/internal/device"
	"github.com/hearthside/hearthside-core/internal/energy"
	"github.com/hearthside/hearthside-core/internal/infrastructure/config"
	"github.com/hearthside/hearthside-core/internal/infrastructure/logging"
)

// memDeviceRepo is an in-memory device.Repository.
type memDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*device.Device
	order   []string
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{devices: make(map[string]*device.Device)}
}

func (m *memDeviceRepo) GetByID(_ context.Context, id string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	return d.Clone(), nil
}

func (m *memDeviceRepo) List(_ context.Context) ([]*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*device.Device, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.devices[id].Clone())
	}
	return out, nil
}

func (m *memDeviceRepo) Create(_ context.Context, d *device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[d.ID]; ok {
		return device.ErrDuplicateID
	}
	m.devices[d.ID] = d.Clone()
	m.order = append(m.order, d.ID)
	return nil
}

func (m *memDeviceRepo) Update(_ context.Context, d *device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d.Clone()
	return nil
}

func (m *memDeviceRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memDeviceRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order), nil
}

// memCaregiverRepo is an in-memory access.Repository.
type memCaregiverRepo struct {
	mu         sync.Mutex
	caregivers map[string]*access.Caregiver
	order      []string
}

func newMemCaregiverRepo() *memCaregiverRepo {
	return &memCaregiverRepo{caregivers: make(map[string]*access.Caregiver)}
}

func (m *memCaregiverRepo) GetByID(_ context.Context, id string) (*access.Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caregivers[id]
	if !ok {
		return nil, access.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *memCaregiverRepo) List(_ context.Context) ([]*access.Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*access.Caregiver, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.caregivers[id].Clone())
	}
	return out, nil
}

func (m *memCaregiverRepo) Create(_ context.Context, c *access.Caregiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[c.ID]; ok {
		return access.ErrDuplicateID
	}
	m.caregivers[c.ID] = c.Clone()
	m.order = append(m.order, c.ID)
	return nil
}

func (m *memCaregiverRepo) Update(_ context.Context, c *access.Caregiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[c.ID]; !ok {
		return access.ErrNotFound
	}
	m.caregivers[c.ID] = c.Clone()
	return nil
}

func (m *memCaregiverRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[id]; !ok {
		return access.ErrNotFound
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

// memTrail is an in-memory audit.Repository.
type memTrail struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (m *memTrail) Append(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = audit.NewEntryID()
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memTrail) List(_ context.Context, f audit.Filter) ([]*audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*audit.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.CaregiverID != "" && e.CaregiverID != f.CaregiverID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memTrail) Count(ctx context.Context, f audit.Filter) (int, error) {
	entries, err := m.List(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

type testEnv struct {
	server   *Server
	router   http.Handler
	registry *device.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.Default()
	registry := device.NewRegistry(newMemDeviceRepo(), logger)
	if err := device.SeedDefaults(context.Background(), registry); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	trail := &memTrail{}
	caregivers := newMemCaregiverRepo()
	controller := access.NewController(caregivers, registry, command.NewInterpreter(registry), trail, logger)

	if _, err := controller.Add(context.Background(), &access.Caregiver{
		ID: "cg-active", Name: "Sarah Chen",
		Status:      access.StatusActive,
		Permissions: []access.Capability{access.CapabilityView, access.CapabilityControl},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	monitor := energy.NewMonitor(registry, energy.Tariff{UnitRate: 0.12, BaselineMonthlyCost: 150}, time.Minute, logger)

	recognizer, err := command.NewScriptedRecognizer([]string{"Turn on living room lights"}, 0)
	if err != nil {
		t.Fatalf("NewScriptedRecognizer() error = %v", err)
	}

	srv, err := New(Deps{
		Config:     config.APIConfig{},
		WS:         config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 60},
		Logger:     logger,
		Registry:   registry,
		Controller: controller,
		Monitor:    monitor,
		Trail:      trail,
		Recognizer: recognizer,
		Phrases:    config.DefaultPhrases,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.hub = NewHub(srv.wsCfg, logger)

	return &testEnv{server: srv, router: srv.buildRouter(), registry: registry}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/devices/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decode[struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}](t, rec)
	if body.Count != 4 {
		t.Errorf("count = %d, want 4 seeded devices", body.Count)
	}
	if body.Devices[0].ID != "dev-lr-ac" {
		t.Errorf("first device = %s, want dev-lr-ac (registration order)", body.Devices[0].ID)
	}
}

func TestPatchDevice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/v1/devices/dev-main-lights/", map[string]any{"level": 150})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	d := decode[device.Device](t, rec)
	if d.Level == nil || *d.Level != 100 {
		t.Errorf("level = %v, want clamped to 100", d.Level)
	}
}

func TestPatchDeviceErrors(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPatch, "/api/v1/devices/missing/", map[string]any{"is_on": true}); rec.Code != http.StatusNotFound {
		t.Errorf("patch missing: status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodPatch, "/api/v1/devices/dev-main-lights/", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch: status = %d, want 400", rec.Code)
	}
}

func TestToggleDevice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/devices/dev-br-heater/toggle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	d := decode[device.Device](t, rec)
	if !d.IsOn {
		t.Error("heater not toggled on")
	}
}

func TestToggleDeviceAbsolute(t *testing.T) {
	env := newTestEnv(t)

	// The seeded heater starts off; requesting off must hold that state.
	rec := env.do(t, http.MethodPost, "/api/v1/devices/dev-br-heater/toggle", map[string]any{"on": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if d := decode[device.Device](t, rec); d.IsOn {
		t.Error("toggle with on=false: IsOn = true, want false")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/devices/dev-br-heater/toggle", map[string]any{"on": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if d := decode[device.Device](t, rec); !d.IsOn {
		t.Error("toggle with on=true: IsOn = false, want true")
	}

	bad := env.do(t, http.MethodPost, "/api/v1/devices/dev-br-heater/toggle", "not-an-object")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", bad.Code)
	}
}

func TestCreateDevice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/devices/", map[string]any{
		"name": "Desk Lamp", "room": "Office", "type": "light", "rated_power_watts": 12, "level": 40,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	bad := env.do(t, http.MethodPost, "/api/v1/devices/", map[string]any{"name": "x", "type": "toaster"})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid type: status = %d, want 400", bad.Code)
	}
}

func TestGetEnergy(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/energy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	snap := decode[energy.Snapshot](t, rec)
	// Seeded: AC 1200 on + lights 60 on + fan 45 on, heater off.
	if snap.TotalWatts != 1305 {
		t.Errorf("TotalWatts = %d, want 1305", snap.TotalWatts)
	}
	if snap.Tier != energy.TierGood {
		t.Errorf("Tier = %s, want Good", snap.Tier)
	}
}

func TestExecuteCommand(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/commands/", map[string]any{
		"caregiver_id": "cg-active", "text": "Set AC to 22 degrees",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	result := decode[access.CommandResult](t, rec)
	if result.Outcome != access.OutcomeExecuted {
		t.Fatalf("Outcome = %s, want executed", result.Outcome)
	}
	if result.Message != "Set AC to 22°C" {
		t.Errorf("Message = %q", result.Message)
	}

	ac, err := env.registry.Get("dev-lr-ac")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ac.TemperatureC == nil || *ac.TemperatureC != 22 {
		t.Errorf("TemperatureC = %v, want 22", ac.TemperatureC)
	}
}

func TestExecuteCommandOutcomes(t *testing.T) {
	env := newTestEnv(t)

	unrec := env.do(t, http.MethodPost, "/api/v1/commands/", map[string]any{
		"caregiver_id": "cg-active", "text": "make tea",
	})
	if unrec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", unrec.Code)
	}
	if r := decode[access.CommandResult](t, unrec); r.Outcome != access.OutcomeUnrecognized {
		t.Errorf("Outcome = %s, want unrecognized", r.Outcome)
	}

	missing := env.do(t, http.MethodPost, "/api/v1/commands/", map[string]any{
		"caregiver_id": "cg-nope", "text": "turn on lights",
	})
	if missing.Code != http.StatusOK {
		t.Fatalf("unknown caregiver: status = %d, want 200", missing.Code)
	}
	if r := decode[access.CommandResult](t, missing); r.Outcome != access.OutcomeDenied || r.Message != access.ReasonNotActive {
		t.Errorf("unknown caregiver: result = %+v, want denied/%q", r, access.ReasonNotActive)
	}

	noID := env.do(t, http.MethodPost, "/api/v1/commands/", map[string]any{"text": "turn on lights"})
	if noID.Code != http.StatusBadRequest {
		t.Errorf("missing caregiver_id: status = %d, want 400", noID.Code)
	}
}

func TestListPhrases(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/commands/phrases", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decode[struct {
		Phrases []string `json:"phrases"`
	}](t, rec)
	if len(body.Phrases) != len(config.DefaultPhrases) {
		t.Errorf("phrases = %d, want %d", len(body.Phrases), len(config.DefaultPhrases))
	}
}

func TestVoiceListen(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/voice/listen", map[string]any{
		"caregiver_id": "cg-active",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	body := decode[voiceListenResponse](t, rec)
	if body.Recognized != "Turn on living room lights" {
		t.Errorf("Recognized = %q", body.Recognized)
	}
	if body.Result == nil || body.Result.Outcome != access.OutcomeExecuted {
		t.Errorf("Result = %+v, want executed", body.Result)
	}
}

func TestCaregiverLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)

	created := env.do(t, http.MethodPost, "/api/v1/caregivers/", map[string]any{
		"name": "Marcus Webb", "email": "marcus@example.com", "role": "Nurse",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201; body: %s", created.Code, created.Body.String())
	}
	c := decode[access.Caregiver](t, created)
	if c.Status != access.StatusPending {
		t.Errorf("Status = %s, want pending", c.Status)
	}

	activated := env.do(t, http.MethodPost, "/api/v1/caregivers/"+c.ID+"/activate", nil)
	if activated.Code != http.StatusOK {
		t.Fatalf("activate: status = %d, want 200", activated.Code)
	}

	// Activating again conflicts with the lifecycle.
	again := env.do(t, http.MethodPost, "/api/v1/caregivers/"+c.ID+"/activate", nil)
	if again.Code != http.StatusConflict {
		t.Errorf("re-activate: status = %d, want 409", again.Code)
	}

	granted := env.do(t, http.MethodPut, "/api/v1/caregivers/"+c.ID+"/permissions", map[string]any{
		"capability": "control", "granted": true,
	})
	if granted.Code != http.StatusOK {
		t.Fatalf("grant: status = %d, want 200", granted.Code)
	}
	if got := decode[access.Caregiver](t, granted); !got.HasCapability(access.CapabilityControl) {
		t.Error("control not granted")
	}

	deleted := env.do(t, http.MethodDelete, "/api/v1/caregivers/"+c.ID+"/", nil)
	if deleted.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", deleted.Code)
	}
}

func TestListAudit(t *testing.T) {
	env := newTestEnv(t)

	// Execute two commands to populate the trail.
	for _, text := range []string{"turn on lights", "turn off lights"} {
		rec := env.do(t, http.MethodPost, "/api/v1/commands/", map[string]any{
			"caregiver_id": "cg-active", "text": text,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("command: status = %d", rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/audit?kind=control", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decode[struct {
		Entries []audit.Entry `json:"entries"`
		Total   int           `json:"total"`
	}](t, rec)
	if body.Total != 2 {
		t.Errorf("total = %d, want 2", body.Total)
	}
	if len(body.Entries) != 2 || body.Entries[0].Action != "Turned off lights" {
		t.Errorf("entries = %+v, want newest first", body.Entries)
	}

	bad := env.do(t, http.MethodGet, "/api/v1/audit?limit=-1", nil)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", bad.Code)
	}
}
