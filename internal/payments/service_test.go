package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	entries map[uuid.UUID]LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{entries: map[uuid.UUID]LedgerEntry{}}
}

func (m *memStore) Insert(_ context.Context, e LedgerEntry) (LedgerEntry, error) {
	e.UpdatedAt = e.CreatedAt
	m.entries[e.ID] = e
	return e, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (LedgerEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return LedgerEntry{}, ErrEntryNotFound
	}
	return e, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	e, ok := m.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	if e.Status == StatusConfirmed {
		return ErrEntryConfirmed
	}
	e.Status = status
	m.entries[id] = e
	return nil
}

func (m *memStore) Confirm(ctx context.Context, id uuid.UUID) error {
	return m.UpdateStatus(ctx, id, StatusConfirmed)
}

func (m *memStore) ListByRoom(_ context.Context, roomID string) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range m.entries {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecordValidatesInput(t *testing.T) {
	svc := NewService(newMemStore())

	_, err := svc.Record(context.Background(), RecordInput{
		RoomID:     "room-1",
		PlayerID:   "p1",
		LedgerType: "subscription",
		Amount:     decimal.RequireFromString("10.00"),
		Status:     StatusExpected,
	})
	require.ErrorIs(t, err, ErrInvalidLedgerType)

	_, err = svc.Record(context.Background(), RecordInput{
		RoomID:     "room-1",
		PlayerID:   "p1",
		LedgerType: LedgerTypeEntryFee,
		Amount:     decimal.RequireFromString("-1.00"),
		Status:     StatusExpected,
	})
	require.Error(t, err)
}

func TestRecordAndConfirmFlow(t *testing.T) {
	svc := NewService(newMemStore())
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 7, 19, 0, 0, 0, time.UTC) })

	entry, err := svc.Record(context.Background(), RecordInput{
		RoomID:     "room-1",
		PlayerID:   "p1",
		LedgerType: LedgerTypeEntryFee,
		Amount:     decimal.RequireFromString("10.00"),
		Status:     StatusExpected,
		Method:     "card",
	})
	require.NoError(t, err)
	require.Equal(t, StatusExpected, entry.Status)

	claimed, err := svc.Claim(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClaimed, claimed.Status)

	confirmed, err := svc.Confirm(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
}

func TestConfirmedEntriesAreImmutable(t *testing.T) {
	svc := NewService(newMemStore())

	entry, err := svc.Record(context.Background(), RecordInput{
		RoomID:     "room-1",
		PlayerID:   "p1",
		LedgerType: LedgerTypeExtraPurchase,
		Amount:     decimal.RequireFromString("2.00"),
		Status:     StatusClaimed,
		Method:     "cash",
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), entry.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), entry.ID)
	require.ErrorIs(t, err, ErrEntryConfirmed)

	_, err = svc.Claim(context.Background(), entry.ID)
	require.ErrorIs(t, err, ErrEntryConfirmed)
}

func TestConfirmUnknownEntry(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.Confirm(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrEntryNotFound)
}
