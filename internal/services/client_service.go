package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/core"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

// ClientService manages the member roster.
type ClientService struct {
	store store.ClientStore
}

func NewClientService(st store.ClientStore) *ClientService {
	return &ClientService{store: st}
}

// Create enrolls a new client. New clients start active.
func (s *ClientService) Create(ctx context.Context, in core.NewClient, now time.Time) (core.Client, error) {
	if err := in.Validate(); err != nil {
		return core.Client{}, err
	}
	c := core.Client{
		ID:             uuid.NewString(),
		FullName:       in.FullName,
		Email:          in.Email,
		Phone:          in.Phone,
		EnrollmentDate: in.EnrollmentDate,
		MonthlyFee:     in.MonthlyFee,
		Status:         core.ClientActive,
		PhotoURL:       in.PhotoURL,
		CreatedAt:      now.UTC(),
	}
	if err := s.store.InsertClient(ctx, c); err != nil {
		return core.Client{}, fmt.Errorf("insert client: %w", err)
	}
	slog.InfoContext(ctx, "Client enrolled", "client_id", c.ID, "enrollment_date", c.EnrollmentDate.String())
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (core.Client, error) {
	return s.store.GetClient(ctx, id)
}

// Search lists clients matching f. An empty filter lists everyone.
func (s *ClientService) Search(ctx context.Context, f store.ClientFilter) ([]core.Client, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", core.ErrInvalidInput, f.Status)
	}
	return s.store.ListClients(ctx, f)
}

// SetStatus changes a client's status by hand, for suspensions and
// cancellations.
func (s *ClientService) SetStatus(ctx context.Context, id string, status core.ClientStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", core.ErrInvalidInput, status)
	}
	if err := s.store.UpdateClientStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update client status: %w", err)
	}
	slog.InfoContext(ctx, "Client status set", "client_id", id, "status", status)
	return nil
}
