package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/core"
	"gymdesk/internal/metrics"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

// AttendanceStore is what the attendance ledger needs from a backend.
type AttendanceStore interface {
	store.StaffStore
	store.AttendanceStore
}

// AttendanceLedger keeps one check-in per staff member per day. Only the
// current day is retained: reading today's list purges every other day.
type AttendanceLedger struct {
	store   AttendanceStore
	metrics *metrics.Recorder
}

func NewAttendanceLedger(st AttendanceStore, rec *metrics.Recorder) *AttendanceLedger {
	return &AttendanceLedger{store: st, metrics: rec}
}

// CheckIn records a presence for the staff member with the given code on
// the calendar day of now, in now's location.
func (l *AttendanceLedger) CheckIn(ctx context.Context, staffCode string, now time.Time) (core.AttendanceRecord, error) {
	rec, err := l.checkIn(ctx, strings.TrimSpace(staffCode), now)
	switch {
	case err == nil:
		l.metrics.CheckIn("ok")
	case errors.Is(err, core.ErrAlreadyCheckedIn):
		l.metrics.CheckIn("duplicate")
	case errors.Is(err, core.ErrUnknownCode):
		l.metrics.CheckIn("unknown_code")
	default:
		l.metrics.CheckIn("error")
	}
	return rec, err
}

func (l *AttendanceLedger) checkIn(ctx context.Context, code string, now time.Time) (core.AttendanceRecord, error) {
	staff, err := l.store.GetStaffByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return core.AttendanceRecord{}, fmt.Errorf("%w: %q", core.ErrUnknownCode, code)
	}
	if err != nil {
		return core.AttendanceRecord{}, fmt.Errorf("lookup staff code: %w", err)
	}

	day := core.DateOf(now)
	if _, err := l.store.FindAttendance(ctx, staff.ID, day); err == nil {
		return core.AttendanceRecord{}, fmt.Errorf("%w: %s on %s", core.ErrAlreadyCheckedIn, staff.Name, day)
	} else if !errors.Is(err, store.ErrNotFound) {
		return core.AttendanceRecord{}, fmt.Errorf("find attendance: %w", err)
	}

	rec := core.AttendanceRecord{
		ID:          uuid.NewString(),
		StaffID:     staff.ID,
		Date:        day,
		CheckInTime: now,
		Status:      core.AttendancePresent,
	}
	if err := l.store.InsertAttendance(ctx, rec); err != nil {
		// Lost the race against a concurrent check-in for the same day.
		if errors.Is(err, store.ErrDuplicate) {
			return core.AttendanceRecord{}, fmt.Errorf("%w: %s on %s", core.ErrAlreadyCheckedIn, staff.Name, day)
		}
		return core.AttendanceRecord{}, fmt.Errorf("insert attendance: %w", err)
	}

	slog.InfoContext(ctx, "Staff checked in",
		"staff_id", staff.ID,
		"staff_code", staff.StaffCode,
		"date", day.String())
	return rec, nil
}

// Today purges records from other days and lists today's check-ins joined
// with their staff members.
func (l *AttendanceLedger) Today(ctx context.Context, now time.Time) ([]core.AttendanceEntry, error) {
	day := core.DateOf(now)
	purged, err := l.store.PurgeAttendanceExcept(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("purge attendance: %w", err)
	}
	if purged > 0 {
		slog.InfoContext(ctx, "Purged attendance from previous days", "count", purged, "kept", day.String())
	}
	entries, err := l.store.ListAttendanceByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return entries, nil
}
