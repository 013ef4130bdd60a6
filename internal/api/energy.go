package api

import "net/http"

// handleGetEnergy returns a freshly computed energy snapshot.
func (s *Server) handleGetEnergy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}
