package core

import (
	"encoding/json"
	"sort"
	"testing"
	"time"
)

func TestPeriodOf(t *testing.T) {
	got := PeriodOf(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC))
	if got.String() != "2024-02" {
		t.Fatalf("expected 2024-02, got %s", got)
	}
}

func TestParsePeriodKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01", true},
		{"1999-12", true},
		{"2024-13", false},
		{"2024-00", false},
		{"2024-1", false},
		{"24-01", false},
		{"2024/01", false},
		{"", false},
	}
	for _, tc := range cases {
		k, err := ParsePeriodKey(tc.in)
		if tc.ok && (err != nil || k.String() != tc.in) {
			t.Errorf("%q: expected round trip, got %v (err=%v)", tc.in, k, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q: expected error", tc.in)
		}
	}
}

func TestPeriodCompareMatchesStringOrder(t *testing.T) {
	keys := []PeriodKey{
		NewPeriod(2024, 10), NewPeriod(2023, 12), NewPeriod(2024, 2), NewPeriod(2024, 1), NewPeriod(2025, 1),
	}
	for _, a := range keys {
		for _, b := range keys {
			var want int
			switch {
			case a.String() < b.String():
				want = -1
			case a.String() > b.String():
				want = 1
			}
			if got := a.Compare(b); got != want {
				t.Errorf("%s vs %s: expected %d, got %d", a, b, want, got)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	if keys[0].String() != "2023-12" || keys[len(keys)-1].String() != "2025-01" {
		t.Fatalf("unexpected order %v", keys)
	}
}

func TestPeriodNextPrevAcrossYears(t *testing.T) {
	if got := NewPeriod(2023, 12).Next(); got != NewPeriod(2024, 1) {
		t.Fatalf("expected 2024-01, got %s", got)
	}
	if got := NewPeriod(2024, 1).Prev(); got != NewPeriod(2023, 12) {
		t.Fatalf("expected 2023-12, got %s", got)
	}
	if got := NewPeriod(2024, 2).Last().String(); got != "2024-02-29" {
		t.Fatalf("expected leap day, got %s", got)
	}
}

func TestPeriodRange(t *testing.T) {
	r := PeriodRange(NewPeriod(2023, 11), NewPeriod(2024, 2))
	want := []string{"2023-11", "2023-12", "2024-01", "2024-02"}
	if len(r) != len(want) {
		t.Fatalf("expected %d periods, got %d", len(want), len(r))
	}
	for i, k := range r {
		if k.String() != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], k)
		}
	}
	if PeriodRange(NewPeriod(2024, 2), NewPeriod(2024, 1)) != nil {
		t.Fatal("expected nil for inverted range")
	}
	if len(YearPeriods(2024)) != 12 {
		t.Fatal("expected 12 periods in a year")
	}
}

func TestPeriodJSON(t *testing.T) {
	in := []PeriodKey{NewPeriod(2024, 3), NewPeriod(2024, 4)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `["2024-03","2024-04"]` {
		t.Fatalf("unexpected json %s", b)
	}
	var out []PeriodKey
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out[1] != NewPeriod(2024, 4) {
		t.Fatalf("unexpected decode %v", out)
	}
	m := map[PeriodKey]int{NewPeriod(2024, 3): 1}
	if b, _ := json.Marshal(m); string(b) != `{"2024-03":1}` {
		t.Fatalf("unexpected map json %s", b)
	}
}
