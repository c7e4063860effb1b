package billing

import (
	"gymdesk/internal/core"
	"testing"
	"time"
)

func p(year, month int) core.PeriodKey { return core.NewPeriod(year, month) }

func payment(clientID string, cents int64, paid core.Date, months ...core.PeriodKey) core.Payment {
	return core.Payment{
		ID:            clientID + "-" + paid.String(),
		ClientID:      clientID,
		Amount:        core.Money{Cents: cents},
		PaymentDate:   paid,
		MonthsCovered: months,
		Method:        core.MethodCash,
	}
}

func TestMonthStatus(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2024, 3, 15), MonthlyFee: core.Money{Cents: 15000}}
	today := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	payments := []core.Payment{
		payment("c1", 30000, core.NewDate(2024, 3, 15), p(2024, 3), p(2024, 4)),
		payment("other", 15000, core.NewDate(2024, 5, 2), p(2024, 5)),
	}

	tests := []struct {
		name   string
		period core.PeriodKey
		want   core.MonthStatus
	}{
		{"before enrollment", p(2024, 2), core.StatusNotApplicable},
		{"enrollment month paid", p(2024, 3), core.StatusPaid},
		{"paid by multi month payment", p(2024, 4), core.StatusPaid},
		{"another client's payment does not count", p(2024, 5), core.StatusOverdue},
		{"current month unpaid", p(2024, 6), core.StatusUpcoming},
		{"future month unpaid", p(2024, 9), core.StatusUpcoming},
		{"previous year", p(2023, 12), core.StatusNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthStatus(client, payments, tt.period, today); got != tt.want {
				t.Errorf("MonthStatus(%s) = %s, want %s", tt.period, got, tt.want)
			}
		})
	}
}

func TestMonthStatusPaidRegardlessOfToday(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2023, 1, 1)}
	payments := []core.Payment{payment("c1", 1, core.NewDate(2023, 1, 1), p(2023, 7))}
	for _, today := range []time.Time{
		time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 7, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		if got := MonthStatus(client, payments, p(2023, 7), today); got != core.StatusPaid {
			t.Errorf("today=%s: expected paid, got %s", today.Format("2006-01-02"), got)
		}
	}
}

func TestMonthStatusPaymentBeforeEnrollmentIsNotApplicable(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2024, 3, 1)}
	payments := []core.Payment{payment("c1", 100, core.NewDate(2024, 3, 1), p(2024, 2))}
	got := MonthStatus(client, payments, p(2024, 2), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if got != core.StatusNotApplicable {
		t.Fatalf("expected not-applicable, got %s", got)
	}
}

func TestNewClientCurrentMonth(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2024, 6, 3)}
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	timeline := Timeline(client, nil, 2024, today)
	for _, e := range timeline[:5] {
		if e.Status != core.StatusNotApplicable {
			t.Errorf("%s: expected not-applicable, got %s", e.Period, e.Status)
		}
	}
	if timeline[5].Status != core.StatusUpcoming {
		t.Errorf("2024-06: expected upcoming, got %s", timeline[5].Status)
	}
}

func TestTimelineScenario(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2024, 3, 15), MonthlyFee: core.Money{Cents: 15000}}
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	payments := []core.Payment{payment("c1", 30000, core.NewDate(2024, 3, 15), p(2024, 3), p(2024, 4))}

	got := TimelineRange(client, payments, p(2024, 1), p(2024, 6), today)
	want := []core.MonthStatus{
		core.StatusNotApplicable,
		core.StatusNotApplicable,
		core.StatusPaid,
		core.StatusPaid,
		core.StatusOverdue,
		core.StatusUpcoming,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Status != want[i] {
			t.Errorf("%s: got %s, want %s", got[i].Period, got[i].Status, want[i])
		}
	}
	if got[2].AmountPaid.Cents != 15000 || got[3].AmountPaid.Cents != 15000 {
		t.Errorf("expected prorated 15000 for Mar/Apr, got %d/%d", got[2].AmountPaid.Cents, got[3].AmountPaid.Cents)
	}
	if got[0].AmountDue.Cents != 0 || got[4].AmountDue.Cents != 15000 {
		t.Errorf("unexpected amount due: jan=%d may=%d", got[0].AmountDue.Cents, got[4].AmountDue.Cents)
	}
}

func TestTimelineIsIdempotent(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2023, 11, 20)}
	today := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	payments := []core.Payment{
		payment("c1", 100, core.NewDate(2023, 12, 1), p(2023, 12), p(2024, 2)),
	}
	first := Timeline(client, payments, 2024, today)
	second := Timeline(client, payments, 2024, today)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if len(first) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(first))
	}
}

func TestOverdueMonths(t *testing.T) {
	client := core.Client{ID: "c1", EnrollmentDate: core.NewDate(2023, 11, 20)}
	today := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	payments := []core.Payment{payment("c1", 100, core.NewDate(2023, 11, 20), p(2023, 11), p(2024, 1))}

	got := OverdueMonths(client, payments, today)
	want := []string{"2023-12", "2024-02"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if !IsLate(client, payments, today) {
		t.Error("expected client to be late")
	}
	if OverdueMonths(core.Client{ID: "n", EnrollmentDate: core.NewDate(2024, 3, 1)}, nil, today) != nil {
		t.Error("expected no overdue months in the enrollment month")
	}
}
