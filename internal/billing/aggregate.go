package billing

import (
	"gymdesk/internal/core"
)

// PeriodMetrics is the activity collected in one month.
type PeriodMetrics struct {
	Period      core.PeriodKey `json:"period"`
	Revenue     core.Money     `json:"revenue"`
	Payments    int            `json:"payments"`
	Enrollments int            `json:"enrollments"`
}

// Report holds one bucket per month of an inclusive range, in calendar order.
type Report struct {
	From             core.PeriodKey  `json:"from"`
	To               core.PeriodKey  `json:"to"`
	Periods          []PeriodMetrics `json:"periods"`
	TotalRevenue     core.Money      `json:"total_revenue"`
	TotalEnrollments int             `json:"total_enrollments"`
}

// Aggregate buckets revenue by the month a payment was collected and
// enrollments by enrollment month. Months without activity are present with
// zero values. Records outside [from, to] are ignored.
func Aggregate(payments []core.Payment, clients []core.Client, from, to core.PeriodKey) Report {
	r := Report{From: from, To: to}
	periods := core.PeriodRange(from, to)
	r.Periods = make([]PeriodMetrics, len(periods))
	index := make(map[core.PeriodKey]int, len(periods))
	for i, k := range periods {
		r.Periods[i] = PeriodMetrics{Period: k}
		index[k] = i
	}

	for _, p := range payments {
		i, ok := index[p.PaymentDate.Period()]
		if !ok {
			continue
		}
		r.Periods[i].Revenue = r.Periods[i].Revenue.Add(p.Amount)
		r.Periods[i].Payments++
	}
	for _, c := range clients {
		i, ok := index[c.EnrollmentDate.Period()]
		if !ok {
			continue
		}
		r.Periods[i].Enrollments++
	}

	for _, b := range r.Periods {
		r.TotalRevenue = r.TotalRevenue.Add(b.Revenue)
		r.TotalEnrollments += b.Enrollments
	}
	return r
}

// Bucket returns the metrics for one month of the report.
func (r Report) Bucket(k core.PeriodKey) (PeriodMetrics, bool) {
	if k.Before(r.From) || k.After(r.To) || len(r.Periods) == 0 {
		return PeriodMetrics{}, false
	}
	return r.Periods[monthsBetween(r.From, k)], true
}

// PerPeriod returns the buckets keyed by month.
func (r Report) PerPeriod() map[core.PeriodKey]PeriodMetrics {
	out := make(map[core.PeriodKey]PeriodMetrics, len(r.Periods))
	for _, b := range r.Periods {
		out[b.Period] = b
	}
	return out
}

func monthsBetween(from, to core.PeriodKey) int {
	return (to.Year-from.Year)*12 + int(to.Month) - int(from.Month)
}

// ActiveCountAsOf counts clients enrolled on or before date whose stored
// status is active.
func ActiveCountAsOf(clients []core.Client, date core.Date) int {
	n := 0
	for _, c := range clients {
		if c.Status == core.ClientActive && !c.EnrollmentDate.After(date.Time) {
			n++
		}
	}
	return n
}

// OverdueCount counts clients whose stored status is late.
func OverdueCount(clients []core.Client) int {
	return StatusCounts(clients)[core.ClientLate]
}

// StatusCounts tallies clients by stored status.
func StatusCounts(clients []core.Client) map[core.ClientStatus]int {
	out := map[core.ClientStatus]int{
		core.ClientActive:    0,
		core.ClientLate:      0,
		core.ClientSuspended: 0,
		core.ClientCancelled: 0,
	}
	for _, c := range clients {
		out[c.Status]++
	}
	return out
}
