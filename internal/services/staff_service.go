package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"gymdesk/internal/core"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

const (
	minStaffCode    = 1000
	maxStaffCode    = 9999
	codeGenAttempts = 20
)

// StaffStore is what the staff registry needs from a backend.
type StaffStore interface {
	store.StaffStore
	store.Transactor
}

type StaffService struct {
	store StaffStore
	// intn returns a value in [0, n); replaced in tests.
	intn func(n int) int
}

func NewStaffService(st StaffStore) *StaffService {
	return &StaffService{store: st, intn: rand.IntN}
}

// Create registers a staff member. When no code is supplied a free 4-digit
// code is generated.
func (s *StaffService) Create(ctx context.Context, in core.NewStaff) (core.Staff, error) {
	if err := in.Validate(); err != nil {
		return core.Staff{}, err
	}

	code := in.StaffCode
	if code == "" {
		generated, err := s.generateCode(ctx)
		if err != nil {
			return core.Staff{}, err
		}
		code = generated
	} else if taken, err := s.codeTaken(ctx, code); err != nil {
		return core.Staff{}, err
	} else if taken {
		return core.Staff{}, fmt.Errorf("%w: %s", core.ErrDuplicateStaffCode, code)
	}

	st := core.Staff{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Role:      in.Role,
		StaffCode: code,
		Schedule:  in.Schedule,
		Salary:    in.Salary,
	}
	if err := s.store.InsertStaff(ctx, st); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return core.Staff{}, fmt.Errorf("%w: %s", core.ErrDuplicateStaffCode, code)
		}
		return core.Staff{}, fmt.Errorf("insert staff: %w", err)
	}
	slog.InfoContext(ctx, "Staff member created", "staff_id", st.ID, "staff_code", st.StaffCode, "role", st.Role)
	return st, nil
}

func (s *StaffService) generateCode(ctx context.Context) (string, error) {
	for range codeGenAttempts {
		code := strconv.Itoa(minStaffCode + s.intn(maxStaffCode-minStaffCode+1))
		taken, err := s.codeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: no free staff code after %d attempts", core.ErrDuplicateStaffCode, codeGenAttempts)
}

func (s *StaffService) codeTaken(ctx context.Context, code string) (bool, error) {
	_, err := s.store.GetStaffByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup staff code: %w", err)
	}
}

// Delete removes a staff member. Members with attendance history are only
// removed when cascade is set, together with that history.
func (s *StaffService) Delete(ctx context.Context, id string, cascade bool) error {
	if _, err := s.store.GetStaff(ctx, id); err != nil {
		return fmt.Errorf("get staff: %w", err)
	}
	var removed int64
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		n, err := tx.CountAttendanceByStaff(ctx, id)
		if err != nil {
			return fmt.Errorf("count attendance: %w", err)
		}
		if n > 0 {
			if !cascade {
				return fmt.Errorf("%w: staff %s has %d attendance records", core.ErrReferencedByHistory, id, n)
			}
			if removed, err = tx.DeleteAttendanceByStaff(ctx, id); err != nil {
				return fmt.Errorf("delete attendance: %w", err)
			}
		}
		if err := tx.DeleteStaff(ctx, id); err != nil {
			return fmt.Errorf("delete staff: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Staff member deleted", "staff_id", id, "attendance_removed", removed)
	return nil
}

func (s *StaffService) List(ctx context.Context) ([]core.Staff, error) {
	return s.store.ListStaff(ctx)
}
