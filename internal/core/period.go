package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodKey identifies a billing month. Its string form "YYYY-MM" sorts
// lexically in calendar order.
type PeriodKey struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the calendar month containing t.
func PeriodOf(t time.Time) PeriodKey {
	return PeriodKey{Year: t.Year(), Month: t.Month()}
}

// NewPeriod builds a key from a year and a 1-12 month.
func NewPeriod(year, month int) PeriodKey {
	return PeriodKey{Year: year, Month: time.Month(month)}
}

// ParsePeriodKey accepts only the canonical "YYYY-MM" form.
func ParsePeriodKey(s string) (PeriodKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	m, err := strconv.Atoi(s[5:])
	if err != nil || m < 1 || m > 12 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return NewPeriod(y, m), nil
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

func (k PeriodKey) Valid() bool {
	return k.Year > 0 && k.Year <= 9999 && k.Month >= time.January && k.Month <= time.December
}

func (k PeriodKey) index() int {
	return k.Year*12 + int(k.Month) - 1
}

// Compare returns -1 if k is before o, 0 if they are the same month, +1 if after.
func (k PeriodKey) Compare(o PeriodKey) int {
	a, b := k.index(), o.index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (k PeriodKey) Before(o PeriodKey) bool { return k.Compare(o) < 0 }
func (k PeriodKey) After(o PeriodKey) bool  { return k.Compare(o) > 0 }

func (k PeriodKey) Next() PeriodKey {
	return periodFromIndex(k.index() + 1)
}

func (k PeriodKey) Prev() PeriodKey {
	return periodFromIndex(k.index() - 1)
}

// First returns midnight UTC of the first day of the month.
func (k PeriodKey) First() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last calendar day of the month.
func (k PeriodKey) Last() Date {
	return Date{Time: k.Next().First().AddDate(0, 0, -1)}
}

func periodFromIndex(i int) PeriodKey {
	return PeriodKey{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// PeriodRange lists every month from start to end inclusive. It returns nil
// when end precedes start.
func PeriodRange(start, end PeriodKey) []PeriodKey {
	if end.Before(start) {
		return nil
	}
	out := make([]PeriodKey, 0, end.index()-start.index()+1)
	for k := start; !k.After(end); k = k.Next() {
		out = append(out, k)
	}
	return out
}

// YearPeriods returns the twelve months of a year.
func YearPeriods(year int) []PeriodKey {
	return PeriodRange(NewPeriod(year, 1), NewPeriod(year, 12))
}

func (k PeriodKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PeriodKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriodKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k PeriodKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PeriodKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}
