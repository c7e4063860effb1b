package http

import (
	"net/http"

	"gymdesk/internal/core"
)

type paymentResponse struct {
	Payment core.Payment `json:"payment"`
	Receipt core.Receipt `json:"receipt"`
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var in core.NewPayment
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, "record_payment", err)
		return
	}
	now := s.now()
	if in.PaymentDate.IsZero() {
		in.PaymentDate = core.DateOf(now)
	}

	p, receipt, err := s.svc.Payments.Record(r.Context(), in, now)
	if err != nil {
		writeError(w, r, "record_payment", err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(paymentResponse{Payment: p, Receipt: receipt}).
		Write(w)
}

// handleDashboard defaults to January of the current year through the
// current month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	q := r.URL.Query()
	current := core.PeriodOf(now)
	from, err := ParsePeriodParam(q, "from", core.NewPeriod(now.Year(), 1))
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	to, err := ParsePeriodParam(q, "to", current)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}

	d, err := s.svc.Dashboard.Dashboard(r.Context(), from, to, now)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleDailyClosing(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	day, err := ParseDateParam(r.URL.Query(), "date", now)
	if err != nil {
		writeError(w, r, "daily_closing", err)
		return
	}
	c, err := s.svc.Dashboard.DailyClosing(r.Context(), day, now)
	if err != nil {
		writeError(w, r, "daily_closing", err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}
