package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store abstracts persistence for the payment service.
type Store interface {
	Insert(ctx context.Context, e LedgerEntry) (LedgerEntry, error)
	Get(ctx context.Context, id uuid.UUID) (LedgerEntry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Confirm(ctx context.Context, id uuid.UUID) error
	ListByRoom(ctx context.Context, roomID string) ([]LedgerEntry, error)
}

// Service is the narrow API through which external payment flows report
// money movements. It never mutates confirmed entries.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record stores a payment reported by an external flow.
func (s *Service) Record(ctx context.Context, in RecordInput) (LedgerEntry, error) {
	if err := in.Validate(); err != nil {
		return LedgerEntry{}, err
	}
	entry := LedgerEntry{
		ID:         uuid.New(),
		RoomID:     in.RoomID,
		PlayerID:   in.PlayerID,
		LedgerType: in.LedgerType,
		Amount:     in.Amount,
		Status:     in.Status,
		Method:     in.Method,
		CreatedAt:  s.now().UTC(),
	}
	return s.store.Insert(ctx, entry)
}

// Confirm marks an expected or claimed payment as confirmed, making it count
// toward reconciliation totals.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (LedgerEntry, error) {
	if err := s.store.Confirm(ctx, id); err != nil {
		return LedgerEntry{}, err
	}
	return s.store.Get(ctx, id)
}

// Claim marks an expected payment as claimed by the player.
func (s *Service) Claim(ctx context.Context, id uuid.UUID) (LedgerEntry, error) {
	if err := s.store.UpdateStatus(ctx, id, StatusClaimed); err != nil {
		return LedgerEntry{}, err
	}
	return s.store.Get(ctx, id)
}

// ListByRoom returns the raw ledger for a room.
func (s *Service) ListByRoom(ctx context.Context, roomID string) ([]LedgerEntry, error) {
	return s.store.ListByRoom(ctx, roomID)
}
