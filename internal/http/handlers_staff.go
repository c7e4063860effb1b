package http

import (
	"net/http"

	"gymdesk/internal/core"
)

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := s.svc.Staff.List(r.Context())
	if err != nil {
		writeError(w, r, "list_staff", err)
		return
	}
	if staff == nil {
		staff = []core.Staff{}
	}
	NewJSONResponse().Body(staff).Write(w)
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	var in core.NewStaff
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, "create_staff", err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Role = sanitizeInput(in.Role)
	in.StaffCode = sanitizeInput(in.StaffCode)
	in.Schedule = sanitizeInput(in.Schedule)

	st, err := s.svc.Staff.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, "create_staff", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(st).Write(w)
}

// handleDeleteStaff refuses to drop staff with attendance history unless
// cascade=true is given.
func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	cascade, err := ParseBoolParam(r.URL.Query(), "cascade")
	if err != nil {
		writeError(w, r, "delete_staff", err)
		return
	}
	if err := s.svc.Staff.Delete(r.Context(), r.PathValue("id"), cascade); err != nil {
		writeError(w, r, "delete_staff", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type checkInRequest struct {
	StaffCode string `json:"staff_code"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "check_in", err)
		return
	}
	rec, err := s.svc.Attendance.CheckIn(r.Context(), sanitizeInput(req.StaffCode), s.now())
	if err != nil {
		writeError(w, r, "check_in", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(rec).Write(w)
}

func (s *Server) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Attendance.Today(r.Context(), s.now())
	if err != nil {
		writeError(w, r, "attendance_today", err)
		return
	}
	if entries == nil {
		entries = []core.AttendanceEntry{}
	}
	NewJSONResponse().Body(entries).Write(w)
}
