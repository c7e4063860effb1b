package billing

import (
	"fmt"
	"gymdesk/internal/core"
	"sort"
	"time"
)

const (
	LineMonthlyFee  = "monthly_fee"
	LineProductSale = "product_sale"
)

// ClosingLine is one transaction collected on the closing day.
type ClosingLine struct {
	Kind        string             `json:"kind"`
	Reference   string             `json:"reference"`
	Description string             `json:"description"`
	Method      core.PaymentMethod `json:"method"`
	Amount      core.Money         `json:"amount"`
}

// Closing is the end-of-day cash summary printed at the front desk.
type Closing struct {
	Date            core.Date                         `json:"date"`
	Lines           []ClosingLine                     `json:"lines"`
	ByMethod        map[core.PaymentMethod]core.Money `json:"by_method"`
	Total           core.Money                        `json:"total"`
	OverdueClients  int                               `json:"overdue_clients"`
	OverdueEstimate core.Money                        `json:"overdue_estimate"`
}

// ClosingInput carries the records a closing is computed from. Payments and
// Sales may span more than Day; only Day's records are listed. AllPayments is
// the full history used for the overdue estimate.
type ClosingInput struct {
	Day         core.Date
	Payments    []core.Payment
	Sales       []core.Sale
	Clients     []core.Client
	Products    []core.Product
	AllPayments []core.Payment
	Today       time.Time
}

// DailyClosing lists the day's fee payments and product sales, totals them by
// method and estimates what active and late clients still owe.
func DailyClosing(in ClosingInput) Closing {
	c := Closing{
		Date:     in.Day,
		ByMethod: make(map[core.PaymentMethod]core.Money),
	}
	clientNames := make(map[string]string, len(in.Clients))
	for _, cl := range in.Clients {
		clientNames[cl.ID] = cl.FullName
	}
	productNames := make(map[string]string, len(in.Products))
	for _, p := range in.Products {
		productNames[p.ID] = p.Name
	}

	for _, p := range in.Payments {
		if !p.PaymentDate.Equal(in.Day.Time) {
			continue
		}
		c.add(ClosingLine{
			Kind:        LineMonthlyFee,
			Reference:   p.ID,
			Description: fmt.Sprintf("%s (%d months)", nameOr(clientNames, p.ClientID), len(p.MonthsCovered)),
			Method:      p.Method,
			Amount:      p.Amount,
		})
	}
	loc := in.Today.Location()
	for _, s := range in.Sales {
		if !core.DateOf(s.SaleDate.In(loc)).Equal(in.Day.Time) {
			continue
		}
		c.add(ClosingLine{
			Kind:        LineProductSale,
			Reference:   s.ID,
			Description: fmt.Sprintf("%s x%d", nameOr(productNames, s.ProductID), s.Quantity),
			Method:      s.Method,
			Amount:      s.TotalPrice,
		})
	}
	sort.SliceStable(c.Lines, func(i, j int) bool { return c.Lines[i].Kind < c.Lines[j].Kind })

	for _, cl := range in.Clients {
		if cl.Status != core.ClientActive && cl.Status != core.ClientLate {
			continue
		}
		months := OverdueMonths(cl, in.AllPayments, in.Today)
		if len(months) == 0 {
			continue
		}
		c.OverdueClients++
		c.OverdueEstimate = c.OverdueEstimate.Add(cl.MonthlyFee.Times(len(months)))
	}
	return c
}

func (c *Closing) add(l ClosingLine) {
	c.Lines = append(c.Lines, l)
	c.ByMethod[l.Method] = c.ByMethod[l.Method].Add(l.Amount)
	c.Total = c.Total.Add(l.Amount)
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}
