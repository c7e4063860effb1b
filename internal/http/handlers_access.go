package http

import (
	"net/http"

	"gymdesk/internal/core"
)

type accessRequest struct {
	ClientID string `json:"client_id"`
}

// handleRecordAccess logs a member entering. Entry is always recorded; the
// response carries the overdue months for the desk to act on.
func (s *Server) handleRecordAccess(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "record_access", err)
		return
	}
	res, err := s.svc.Access.RecordEntry(r.Context(), sanitizeInput(req.ClientID), s.now())
	if err != nil {
		writeError(w, r, "record_access", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(res).Write(w)
}

func (s *Server) handleAccessToday(w http.ResponseWriter, r *http.Request) {
	logs, err := s.svc.Access.Entries(r.Context(), s.now())
	if err != nil {
		writeError(w, r, "access_today", err)
		return
	}
	if logs == nil {
		logs = []core.AccessLog{}
	}
	NewJSONResponse().Body(logs).Write(w)
}
