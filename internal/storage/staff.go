package storage

import (
	"context"
	"fmt"

	"gymdesk/internal/core"
)

const staffColumns = `id, name, role, staff_code, schedule, salary_cents`

func (r *SQLiteRepository) GetStaff(ctx context.Context, id string) (core.Staff, error) {
	return r.getStaffWhere(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) GetStaffByCode(ctx context.Context, code string) (core.Staff, error) {
	return r.getStaffWhere(ctx, `staff_code = ?`, code)
}

func (r *SQLiteRepository) getStaffWhere(ctx context.Context, where string, arg any) (core.Staff, error) {
	var s core.Staff
	err := r.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE `+where, arg).
		Scan(&s.ID, &s.Name, &s.Role, &s.StaffCode, &s.Schedule, &s.Salary.Cents)
	if err != nil {
		return core.Staff{}, mapErr("get staff", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListStaff(ctx context.Context) ([]core.Staff, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY name, id`)
	if err != nil {
		return nil, mapErr("list staff", err)
	}
	defer rows.Close()

	var out []core.Staff
	for rows.Next() {
		var s core.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.Role, &s.StaffCode, &s.Schedule, &s.Salary.Cents); err != nil {
			return nil, mapErr("scan staff", err)
		}
		out = append(out, s)
	}
	return out, mapErr("list staff", rows.Err())
}

func (r *SQLiteRepository) InsertStaff(ctx context.Context, s core.Staff) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO staff (`+staffColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Role, s.StaffCode, s.Schedule, s.Salary.Cents)
	return mapErr("insert staff", err)
}

func (r *SQLiteRepository) InsertAttendance(ctx context.Context, a core.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO staff_attendance (id, staff_id, date, check_in_time, status) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.StaffID, a.Date.String(), formatTimestamp(a.CheckInTime), a.Status)
	return mapErr("insert attendance", err)
}

func (r *SQLiteRepository) FindAttendance(ctx context.Context, staffID string, date core.Date) (core.AttendanceRecord, error) {
	var (
		a       core.AttendanceRecord
		day     string
		checkIn string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, staff_id, date, check_in_time, status FROM staff_attendance WHERE staff_id = ? AND date = ?`,
		staffID, date.String()).Scan(&a.ID, &a.StaffID, &day, &checkIn, &a.Status)
	if err != nil {
		return core.AttendanceRecord{}, mapErr("find attendance", err)
	}
	if a.Date, err = core.ParseDate(day); err != nil {
		return core.AttendanceRecord{}, err
	}
	if a.CheckInTime, err = parseTimestamp(checkIn); err != nil {
		return core.AttendanceRecord{}, fmt.Errorf("attendance %s check-in time: %w", a.ID, err)
	}
	return a, nil
}

// ListAttendanceByDate joins each record with its staff member.
func (r *SQLiteRepository) ListAttendanceByDate(ctx context.Context, date core.Date) ([]core.AttendanceEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.staff_id, a.date, a.check_in_time, a.status,
		       s.id, s.name, s.role, s.staff_code, s.schedule, s.salary_cents
		FROM staff_attendance a
		JOIN staff s ON s.id = a.staff_id
		WHERE a.date = ?
		ORDER BY a.check_in_time, a.id`, date.String())
	if err != nil {
		return nil, mapErr("list attendance", err)
	}
	defer rows.Close()

	var out []core.AttendanceEntry
	for rows.Next() {
		var (
			e       core.AttendanceEntry
			day     string
			checkIn string
		)
		if err := rows.Scan(&e.ID, &e.StaffID, &day, &checkIn, &e.Status,
			&e.Staff.ID, &e.Staff.Name, &e.Staff.Role, &e.Staff.StaffCode, &e.Staff.Schedule, &e.Staff.Salary.Cents); err != nil {
			return nil, mapErr("scan attendance", err)
		}
		if e.Date, err = core.ParseDate(day); err != nil {
			return nil, err
		}
		if e.CheckInTime, err = parseTimestamp(checkIn); err != nil {
			return nil, fmt.Errorf("attendance %s check-in time: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, mapErr("list attendance", rows.Err())
}

func (r *SQLiteRepository) PurgeAttendanceExcept(ctx context.Context, keep core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM staff_attendance WHERE date <> ?`, keep.String())
	if err != nil {
		return 0, mapErr("purge attendance", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
