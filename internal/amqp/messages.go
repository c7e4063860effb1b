package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"gymdesk/internal/core"
)

const (
	EventPaymentRecorded = "payment.recorded"
	EventSaleCommitted   = "sale.committed"
)

// LedgerEvent announces a committed ledger fact. The record travels with the
// event because payments and sales are immutable once written.
type LedgerEvent struct {
	Type      string        `json:"type"`
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Payment   *core.Payment `json:"payment,omitempty"`
	Sale      *core.Sale    `json:"sale,omitempty"`
}

func NewPaymentRecorded(p core.Payment) *LedgerEvent {
	return &LedgerEvent{Type: EventPaymentRecorded, ID: p.ID, Timestamp: time.Now(), Payment: &p}
}

func NewSaleCommitted(s core.Sale) *LedgerEvent {
	return &LedgerEvent{Type: EventSaleCommitted, ID: s.ID, Timestamp: time.Now(), Sale: &s}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and checks that its payload matches its type.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventPaymentRecorded:
		if e.Payment == nil {
			return nil, fmt.Errorf("%s event %s has no payment", e.Type, e.ID)
		}
	case EventSaleCommitted:
		if e.Sale == nil {
			return nil, fmt.Errorf("%s event %s has no sale", e.Type, e.ID)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
