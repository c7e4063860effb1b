// Package billing derives per-month payment status and period metrics from
// stored clients and payments. Every function is pure: the reference date is
// always passed in and nothing is cached between calls.
package billing

import (
	"gymdesk/internal/core"
	"time"
)

// monthInput is what a status rule sees for one client and one month.
type monthInput struct {
	period   core.PeriodKey
	enrolled core.PeriodKey
	current  core.PeriodKey
	paid     bool
}

// statusRule is one step of the month status decision. Rules are evaluated
// in order and the first match wins.
type statusRule interface {
	Apply(in monthInput) (core.MonthStatus, bool)
}

type beforeEnrollmentRule struct{}

func (beforeEnrollmentRule) Apply(in monthInput) (core.MonthStatus, bool) {
	return core.StatusNotApplicable, in.period.Before(in.enrolled)
}

type coveredRule struct{}

func (coveredRule) Apply(in monthInput) (core.MonthStatus, bool) {
	return core.StatusPaid, in.paid
}

type pastDueRule struct{}

func (pastDueRule) Apply(in monthInput) (core.MonthStatus, bool) {
	return core.StatusOverdue, in.period.Before(in.current)
}

type upcomingRule struct{}

func (upcomingRule) Apply(monthInput) (core.MonthStatus, bool) {
	return core.StatusUpcoming, true
}

var statusRules = []statusRule{
	beforeEnrollmentRule{},
	coveredRule{},
	pastDueRule{},
	upcomingRule{},
}

// MonthStatus classifies one month for a client. Payments belonging to other
// clients are ignored, so callers may pass an unfiltered slice.
func MonthStatus(client core.Client, payments []core.Payment, period core.PeriodKey, today time.Time) core.MonthStatus {
	return evaluate(monthInput{
		period:   period,
		enrolled: client.EnrollmentDate.Period(),
		current:  core.PeriodOf(today),
		paid:     covered(client.ID, payments, period),
	})
}

func evaluate(in monthInput) core.MonthStatus {
	for _, r := range statusRules {
		if s, ok := r.Apply(in); ok {
			return s
		}
	}
	return core.StatusUpcoming
}

func covered(clientID string, payments []core.Payment, period core.PeriodKey) bool {
	for _, p := range payments {
		if p.ClientID == clientID && p.Covers(period) {
			return true
		}
	}
	return false
}

// MonthEntry is one cell of a client timeline. AmountPaid is the prorated
// share of every covering payment and AmountDue is the monthly fee for
// applicable months; neither affects Status.
type MonthEntry struct {
	Period     core.PeriodKey   `json:"period"`
	Status     core.MonthStatus `json:"status"`
	AmountPaid core.Money       `json:"amount_paid"`
	AmountDue  core.Money       `json:"amount_due"`
}

// Timeline returns the twelve months of year for a client.
func Timeline(client core.Client, payments []core.Payment, year int, today time.Time) []MonthEntry {
	return TimelineRange(client, payments, core.NewPeriod(year, 1), core.NewPeriod(year, 12), today)
}

// TimelineRange is Timeline over an arbitrary inclusive range of months.
func TimelineRange(client core.Client, payments []core.Payment, from, to core.PeriodKey, today time.Time) []MonthEntry {
	own := forClient(client.ID, payments)
	periods := core.PeriodRange(from, to)
	out := make([]MonthEntry, 0, len(periods))
	for _, k := range periods {
		e := MonthEntry{
			Period: k,
			Status: MonthStatus(client, own, k, today),
		}
		if e.Status != core.StatusNotApplicable {
			e.AmountDue = client.MonthlyFee
		}
		e.AmountPaid = proratedFor(own, k)
		out = append(out, e)
	}
	return out
}

// OverdueMonths lists every overdue month from enrollment up to the month before today.
func OverdueMonths(client core.Client, payments []core.Payment, today time.Time) []core.PeriodKey {
	current := core.PeriodOf(today)
	start := client.EnrollmentDate.Period()
	if !start.Before(current) {
		return nil
	}
	own := forClient(client.ID, payments)
	var out []core.PeriodKey
	for _, k := range core.PeriodRange(start, current.Prev()) {
		if MonthStatus(client, own, k, today) == core.StatusOverdue {
			out = append(out, k)
		}
	}
	return out
}

// IsLate reports whether the client has at least one overdue month.
func IsLate(client core.Client, payments []core.Payment, today time.Time) bool {
	return len(OverdueMonths(client, payments, today)) > 0
}

func forClient(clientID string, payments []core.Payment) []core.Payment {
	out := make([]core.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out
}

func proratedFor(payments []core.Payment, k core.PeriodKey) core.Money {
	var total core.Money
	for _, p := range payments {
		for i, m := range p.MonthsCovered {
			if m == k {
				total = total.Add(p.Amount.Split(len(p.MonthsCovered))[i])
			}
		}
	}
	return total
}
