package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"gymdesk/internal/core"
	"gymdesk/internal/storage/memory"
)

func TestStaffCreate(t *testing.T) {
	t.Run("generates a four digit code", func(t *testing.T) {
		svc := NewStaffService(memory.New())
		st, err := svc.Create(context.Background(), core.NewStaff{Name: "Bia", Role: "trainer"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		code, err := strconv.Atoi(st.StaffCode)
		if err != nil || code < 1000 || code > 9999 {
			t.Errorf("generated code %q out of range", st.StaffCode)
		}
	})

	t.Run("skips codes already taken", func(t *testing.T) {
		mem := memory.New()
		seedStaff(t, mem, "s1", "1000")
		svc := NewStaffService(mem)
		draws := []int{0, 0, 1}
		svc.intn = func(int) int {
			n := draws[0]
			draws = draws[1:]
			return n
		}
		st, err := svc.Create(context.Background(), core.NewStaff{Name: "Caio", Role: "reception"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if st.StaffCode != "1001" {
			t.Errorf("code = %q, want 1001", st.StaffCode)
		}
	})

	t.Run("rejects a duplicate explicit code", func(t *testing.T) {
		mem := memory.New()
		seedStaff(t, mem, "s1", "4321")
		svc := NewStaffService(mem)
		_, err := svc.Create(context.Background(), core.NewStaff{Name: "Dani", Role: "trainer", StaffCode: "4321"})
		if !errors.Is(err, core.ErrDuplicateStaffCode) {
			t.Fatalf("expected ErrDuplicateStaffCode, got %v", err)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		svc := NewStaffService(memory.New())
		for _, in := range []core.NewStaff{
			{Role: "trainer"},
			{Name: "Eva", Role: "trainer", StaffCode: "12a4"},
			{Name: "Eva", Role: "trainer", StaffCode: "123"},
			{Name: "Eva", Role: "trainer", Salary: core.Money{Cents: -1}},
		} {
			if _, err := svc.Create(context.Background(), in); !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("%+v: expected ErrInvalidInput, got %v", in, err)
			}
		}
	})
}

func TestStaffDelete(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memory.Store, *StaffService) {
		mem := memory.New()
		seedStaff(t, mem, "s1", "1234")
		if _, err := NewAttendanceLedger(mem, nil).CheckIn(ctx, "1234", at(2024, 5, 6, 8)); err != nil {
			t.Fatalf("check-in: %v", err)
		}
		return mem, NewStaffService(mem)
	}

	t.Run("refuses when history exists", func(t *testing.T) {
		mem, svc := setup(t)
		err := svc.Delete(ctx, "s1", false)
		if !errors.Is(err, core.ErrReferencedByHistory) {
			t.Fatalf("expected ErrReferencedByHistory, got %v", err)
		}
		if _, err := mem.GetStaff(ctx, "s1"); err != nil {
			t.Errorf("staff should still exist: %v", err)
		}
	})

	t.Run("cascade removes history", func(t *testing.T) {
		mem, svc := setup(t)
		if err := svc.Delete(ctx, "s1", true); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := mem.GetStaff(ctx, "s1"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("staff should be gone, got %v", err)
		}
		if _, err := mem.FindAttendance(ctx, "s1", core.NewDate(2024, 5, 6)); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("attendance should be gone, got %v", err)
		}
	})

	t.Run("no history needs no cascade", func(t *testing.T) {
		mem := memory.New()
		seedStaff(t, mem, "s2", "2222")
		if err := NewStaffService(mem).Delete(ctx, "s2", false); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("unknown staff", func(t *testing.T) {
		err := NewStaffService(memory.New()).Delete(ctx, "ghost", true)
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
