package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthside/hearthside-core/internal/access"
)

// handleListCaregivers returns all caregivers.
func (s *Server) handleListCaregivers(w http.ResponseWriter, r *http.Request) {
	caregivers, err := s.controller.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list caregivers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"caregivers": caregivers,
		"count":      len(caregivers),
	})
}

// handleGetCaregiver returns a caregiver by ID.
func (s *Server) handleGetCaregiver(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			writeNotFound(w, "caregiver not found")
			return
		}
		writeInternalError(w, "failed to load caregiver")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// createCaregiverRequest is the payload for adding a caregiver.
type createCaregiverRequest struct {
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Role        string              `json:"role"`
	Permissions []access.Capability `json:"permissions,omitempty"`
}

// handleCreateCaregiver adds a caregiver. New caregivers start pending with
// view-only access unless permissions are given explicitly.
func (s *Server) handleCreateCaregiver(w http.ResponseWriter, r *http.Request) {
	var req createCaregiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	c, err := s.controller.Add(r.Context(), &access.Caregiver{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		switch {
		case errors.Is(err, access.ErrValidation), errors.Is(err, access.ErrInvalidCapability):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, access.ErrDuplicateID):
			writeConflict(w, "caregiver already exists")
		default:
			writeInternalError(w, "failed to create caregiver")
		}
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleActivateCaregiver moves a pending caregiver to active.
func (s *Server) handleActivateCaregiver(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.controller.Activate)
}

// handleDeactivateCaregiver moves an active caregiver to inactive.
func (s *Server) handleDeactivateCaregiver(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.controller.Deactivate)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*access.Caregiver, error)) {
	c, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, access.ErrNotFound):
			writeNotFound(w, "caregiver not found")
		case errors.Is(err, access.ErrInvalidTransition):
			writeConflict(w, err.Error())
		default:
			writeInternalError(w, "failed to change caregiver status")
		}
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// setPermissionRequest is the payload for granting or revoking a capability.
type setPermissionRequest struct {
	Capability access.Capability `json:"capability"`
	Granted    bool              `json:"granted"`
}

// handleSetPermission grants or revokes one capability.
func (s *Server) handleSetPermission(w http.ResponseWriter, r *http.Request) {
	var req setPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	c, err := s.controller.SetCapability(r.Context(), chi.URLParam(r, "id"), req.Capability, req.Granted)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrNotFound):
			writeNotFound(w, "caregiver not found")
		case errors.Is(err, access.ErrInvalidCapability):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			writeInternalError(w, "failed to update permissions")
		}
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCaregiver removes a caregiver. Their audit history survives.
func (s *Server) handleDeleteCaregiver(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, access.ErrNotFound) {
			writeNotFound(w, "caregiver not found")
			return
		}
		writeInternalError(w, "failed to delete caregiver")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
