package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthside/hearthside-core/internal/device"
)

// handleListDevices returns all devices in registration order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to load device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// createDeviceRequest is the payload for registering a device.
type createDeviceRequest struct {
	ID              string      `json:"id,omitempty"`
	Name            string      `json:"name"`
	Room            string      `json:"room"`
	Type            device.Type `json:"type"`
	IsOn            bool        `json:"is_on"`
	RatedPowerWatts int         `json:"rated_power_watts"`
	TemperatureC    *int        `json:"temperature_c,omitempty"`
	Level           *int        `json:"level,omitempty"`
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.registry.Register(r.Context(), &device.Device{
		ID:              req.ID,
		Name:            req.Name,
		Room:            req.Room,
		Type:            req.Type,
		IsOn:            req.IsOn,
		RatedPowerWatts: req.RatedPowerWatts,
		TemperatureC:    req.TemperatureC,
		Level:           req.Level,
	})
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDuplicateID):
			writeConflict(w, "device already exists")
		case errors.Is(err, device.ErrValidation), errors.Is(err, device.ErrInvalidType):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			writeInternalError(w, "failed to create device")
		}
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateDevice applies a partial state patch to a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var patch device.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.registry.Apply(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrEmptyPatch):
			writeBadRequest(w, "patch carries no changes")
		default:
			writeInternalError(w, "failed to update device")
		}
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// toggleDeviceRequest carries the optional target state for a toggle. A
// request without a body flips the current state.
type toggleDeviceRequest struct {
	On *bool `json:"on"`
}

// handleToggleDevice sets or flips a device's on/off state.
func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	var req toggleDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.registry.Toggle(r.Context(), chi.URLParam(r, "id"), req.On)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to toggle device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, device.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
