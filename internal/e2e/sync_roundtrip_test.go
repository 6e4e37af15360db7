package e2e

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hostdesk/hostdesk/internal/money"
	"github.com/hostdesk/hostdesk/internal/payments"
	"github.com/hostdesk/hostdesk/internal/recon"
	"github.com/hostdesk/hostdesk/internal/syncer"
	_ "github.com/hostdesk/hostdesk/internal/testing/guard"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]recon.Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]recon.Record)}
}

func (s *memStore) Create(_ context.Context, roomID string, _ time.Time) (recon.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[roomID]; ok {
		return recon.Record{}, recon.ErrRecordExists
	}
	record := recon.Record{RoomID: roomID}
	s.records[roomID] = record
	return record, nil
}

func (s *memStore) Get(_ context.Context, roomID string) (recon.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[roomID]
	if !ok {
		return recon.Record{}, recon.ErrRecordNotFound
	}
	return record, nil
}

func (s *memStore) Save(_ context.Context, record recon.Record, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.RoomID] = record
	return nil
}

func (s *memStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, roomID)
	return nil
}

type paymentsStub struct{}

func (paymentsStub) ListByRoom(context.Context, string) ([]payments.LedgerEntry, error) {
	return nil, nil
}

type stubRooms struct{ fee money.Amount }

func (s stubRooms) EntryFee(context.Context, string) (money.Amount, error) { return s.fee, nil }

// The host process edits the record and the display process converges on the
// same state through the Redis transport, outbox coalescing included.
func TestHostEditsReachDisplayProcess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.Default()
	fee, err := money.FromString("10.00")
	require.NoError(t, err)
	rooms := stubRooms{fee: fee}

	displayStore := newMemStore()
	display := recon.NewService(displayStore, paymentsStub{}, rooms, nil, logger, recon.ApprovalConfig{})
	subscriber := syncer.NewSubscriber(client, display, logger, "display")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = subscriber.Run(ctx) }()
	// Give the PSUBSCRIBE time to register before publishing.
	time.Sleep(50 * time.Millisecond)

	publisher := syncer.NewPublisher(client, "host")
	outbox := syncer.NewOutbox(publisher, logger, 20*time.Millisecond)
	defer outbox.Stop()

	hostStore := newMemStore()
	host := recon.NewService(hostStore, paymentsStub{}, rooms, outbox, logger, recon.ApprovalConfig{})

	const roomID = "room-e2e"
	_, err = host.InitRecord(ctx, roomID)
	require.NoError(t, err)
	_, err = display.InitRecord(ctx, roomID)
	require.NoError(t, err)

	_, err = host.SetNotes(ctx, roomID, "float counted twice")
	require.NoError(t, err)

	amount, err := money.FromString("5.00")
	require.NoError(t, err)
	_, err = host.AddAdjustment(ctx, roomID, recon.AdjustmentInput{
		Type:      recon.AdjustmentRefund,
		Amount:    amount,
		Note:      "duplicate entry fee",
		CreatedBy: "host-1",
	})
	require.NoError(t, err)

	prize, err := money.FromString("50.00")
	require.NoError(t, err)
	place := 1
	_, err = host.DeclareAward(ctx, roomID, recon.DeclareAwardInput{
		Place:          &place,
		PrizeName:      "Gift Card",
		DeclaredValue:  prize,
		WinnerPlayerID: "p-alice",
		WinnerName:     "Alice",
		DeclaredBy:     "host-1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		record, err := display.GetRecord(ctx, roomID)
		if err != nil {
			return false
		}
		return record.Notes == "float counted twice" &&
			len(record.Ledger) == 1 &&
			len(record.PrizeAwards) == 1
	}, 2*time.Second, 20*time.Millisecond)

	record, err := display.GetRecord(ctx, roomID)
	require.NoError(t, err)
	require.Equal(t, recon.AdjustmentRefund, record.Ledger[0].Type)
	require.Equal(t, "Gift Card", record.PrizeAwards[0].PrizeName)
}
