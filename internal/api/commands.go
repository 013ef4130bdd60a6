package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hearthside/hearthside-core/internal/access"
)

// commandRequest is the payload for executing a command.
type commandRequest struct {
	CaregiverID string `json:"caregiver_id"`
	Text        string `json:"text"`
	Emergency   bool   `json:"emergency,omitempty"`
}

// handleExecuteCommand runs a command through the access controller.
// Denied and unrecognised commands are successful HTTP requests; the
// outcome field carries the verdict.
func (s *Server) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CaregiverID == "" {
		writeBadRequest(w, "caregiver_id is required")
		return
	}

	result, err := s.controller.Execute(r.Context(), req.CaregiverID, req.Text, req.Emergency)
	if err != nil {
		writeInternalError(w, "failed to execute command")
		return
	}

	if result.Outcome == access.OutcomeExecuted {
		s.hub.Broadcast(ChannelAudit, result)
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListPhrases returns the configured quick-command phrases.
func (s *Server) handleListPhrases(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"phrases": s.phrases})
}

// voiceListenRequest is the payload for a simulated voice session.
type voiceListenRequest struct {
	CaregiverID string `json:"caregiver_id"`
	Emergency   bool   `json:"emergency,omitempty"`
}

// voiceListenResponse carries the recognised phrase and its outcome.
type voiceListenResponse struct {
	Recognized string                `json:"recognized"`
	Result     *access.CommandResult `json:"result"`
}

// handleVoiceListen runs one recognition session and executes the phrase.
// The session is bound to the request context, so a client that disconnects
// mid-listen cancels it and nothing executes.
func (s *Server) handleVoiceListen(w http.ResponseWriter, r *http.Request) {
	if s.recognizer == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "voice recognition not configured")
		return
	}

	var req voiceListenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CaregiverID == "" {
		writeBadRequest(w, "caregiver_id is required")
		return
	}

	text, err := s.recognizer.Listen(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away; nothing to report to.
			return
		}
		writeInternalError(w, "recognition failed")
		return
	}

	result, err := s.controller.Execute(r.Context(), req.CaregiverID, text, req.Emergency)
	if err != nil {
		writeInternalError(w, "failed to execute command")
		return
	}

	if result.Outcome == access.OutcomeExecuted {
		s.hub.Broadcast(ChannelAudit, result)
	}

	writeJSON(w, http.StatusOK, voiceListenResponse{Recognized: text, Result: result})
}
