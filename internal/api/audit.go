package api

import (
	"net/http"
	"strconv"

	"github.com/hearthside/hearthside-core/internal/audit"
)

// handleListAudit returns audit entries newest first. Supports caregiver_id,
// kind, limit, and offset query parameters.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		CaregiverID: r.URL.Query().Get("caregiver_id"),
		Kind:        audit.Kind(r.URL.Query().Get("kind")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	entries, err := s.trail.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list audit entries")
		return
	}
	total, err := s.trail.Count(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to count audit entries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}
