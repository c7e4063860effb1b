package http

import (
	"net/http"

	"gymdesk/internal/core"
	"gymdesk/internal/store"
)

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in core.NewClient
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, "create_client", err)
		return
	}
	in.FullName = sanitizeInput(in.FullName)
	in.Email = sanitizeInput(in.Email)
	in.Phone = sanitizeInput(in.Phone)
	if in.EnrollmentDate.IsZero() {
		in.EnrollmentDate = core.DateOf(s.now())
	}

	c, err := s.svc.Clients.Create(r.Context(), in, s.now())
	if err != nil {
		writeError(w, r, "create_client", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ClientFilter{
		Query:  sanitizeInput(q.Get("q")),
		Status: core.ClientStatus(sanitizeInput(q.Get("status"))),
	}
	clients, err := s.svc.Clients.Search(r.Context(), f)
	if err != nil {
		writeError(w, r, "search_clients", err)
		return
	}
	if clients == nil {
		clients = []core.Client{}
	}
	NewJSONResponse().Body(clients).Write(w)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Clients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get_client", err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

type statusRequest struct {
	Status core.ClientStatus `json:"status"`
}

func (s *Server) handleSetClientStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, "set_client_status", err)
		return
	}
	id := r.PathValue("id")
	if err := s.svc.Clients.SetStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, "set_client_status", err)
		return
	}
	s.svc.Timelines.InvalidateClient(id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleClientTimeline(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	year, err := ParseYearParam(r.URL.Query(), "year", now)
	if err != nil {
		writeError(w, r, "client_timeline", err)
		return
	}
	tl, err := s.svc.Timelines.Timeline(r.Context(), r.PathValue("id"), year, now)
	if err != nil {
		writeError(w, r, "client_timeline", err)
		return
	}
	NewJSONResponse().Body(tl).Write(w)
}

func (s *Server) handleClientPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.Payments.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "client_payments", err)
		return
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	NewJSONResponse().Body(payments).Write(w)
}
