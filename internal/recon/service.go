package recon

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/money"
	"github.com/hostdesk/hostdesk/internal/payments"
)

// Store abstracts reconciliation record persistence.
type Store interface {
	Create(ctx context.Context, roomID string, now time.Time) (Record, error)
	Get(ctx context.Context, roomID string) (Record, error)
	Save(ctx context.Context, record Record, now time.Time) error
	Delete(ctx context.Context, roomID string) error
}

// PaymentSource lists the raw payment ledger for a room.
type PaymentSource interface {
	ListByRoom(ctx context.Context, roomID string) ([]payments.LedgerEntry, error)
}

// RoomSource resolves the entry fee configured for a room.
type RoomSource interface {
	EntryFee(ctx context.Context, roomID string) (money.Amount, error)
}

// PatchScheduler queues outgoing patches toward the transport. Rapid edits
// to the same room coalesce in the scheduler, so calls here must be cheap
// and non-blocking.
type PatchScheduler interface {
	SchedulePatch(roomID string, patch RecordPatch)
	ScheduleAwardPatch(roomID string, awardID uuid.UUID, patch AwardPatch)
}

// SyncMetrics counts patch application outcomes.
type SyncMetrics interface {
	IncPatchApplied()
	IncPatchDropped()
}

// Service owns the reconciliation record lifecycle for rooms: local host
// mutations, approval, and applying patches arriving from the transport.
type Service struct {
	store    Store
	payments PaymentSource
	rooms    RoomSource
	outbox   PatchScheduler
	metrics  SyncMetrics
	logger   *slog.Logger
	cfg      ApprovalConfig
	now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(store Store, pay PaymentSource, rooms RoomSource, outbox PatchScheduler, logger *slog.Logger, cfg ApprovalConfig) *Service {
	return &Service{
		store:    store,
		payments: pay,
		rooms:    rooms,
		outbox:   outbox,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches patch counters.
func (s *Service) WithMetrics(m SyncMetrics) {
	s.metrics = m
}

// InitRecord creates the empty record owned by a room at event start.
func (s *Service) InitRecord(ctx context.Context, roomID string) (Record, error) {
	return s.store.Create(ctx, roomID, s.now().UTC())
}

// GetRecord loads the current record for a room.
func (s *Service) GetRecord(ctx context.Context, roomID string) (Record, error) {
	return s.store.Get(ctx, roomID)
}

// Teardown removes the record when the event is torn down.
func (s *Service) Teardown(ctx context.Context, roomID string) error {
	return s.store.Delete(ctx, roomID)
}

// Totals recomputes the derived totals from the current payment and
// adjustment snapshot.
func (s *Service) Totals(ctx context.Context, roomID string) (Totals, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return Totals{}, err
	}
	pay, err := s.payments.ListByRoom(ctx, roomID)
	if err != nil {
		return Totals{}, err
	}
	entryFee, err := s.rooms.EntryFee(ctx, roomID)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(pay, record.Ledger, entryFee), nil
}

// AddAdjustment appends a manual correction and broadcasts the new ledger.
func (s *Service) AddAdjustment(ctx context.Context, roomID string, in AdjustmentInput) (AdjustmentEntry, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return AdjustmentEntry{}, err
	}
	entry, err := record.AddAdjustment(in, s.now().UTC())
	if err != nil {
		return AdjustmentEntry{}, err
	}
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return AdjustmentEntry{}, err
	}
	s.schedulePatch(roomID, RecordPatch{Ledger: &record.Ledger})
	return *entry, nil
}

// DeclareAward adds a prize award in the declared state.
func (s *Service) DeclareAward(ctx context.Context, roomID string, in DeclareAwardInput) (PrizeAward, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return PrizeAward{}, err
	}
	award, err := record.DeclareAward(in, s.now().UTC())
	if err != nil {
		return PrizeAward{}, err
	}
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return PrizeAward{}, err
	}
	s.schedulePatch(roomID, RecordPatch{PrizeAwards: &record.PrizeAwards})
	return *award, nil
}

// TransitionAward applies a lifecycle transition to one award and broadcasts
// only that award.
func (s *Service) TransitionAward(ctx context.Context, roomID string, awardID uuid.UUID, next AwardStatus, actor, note string) (PrizeAward, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return PrizeAward{}, err
	}
	if err := record.TransitionAward(awardID, next, actor, note, s.now().UTC()); err != nil {
		return PrizeAward{}, err
	}
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return PrizeAward{}, err
	}
	award := record.Award(awardID)
	s.scheduleAwardBroadcast(roomID, *award)
	return *award, nil
}

// ReopenAward returns a terminal award to declared.
func (s *Service) ReopenAward(ctx context.Context, roomID string, awardID uuid.UUID, actor, note string) (PrizeAward, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return PrizeAward{}, err
	}
	if err := record.ReopenAward(awardID, actor, note, s.now().UTC()); err != nil {
		return PrizeAward{}, err
	}
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return PrizeAward{}, err
	}
	award := record.Award(awardID)
	s.scheduleAwardBroadcast(roomID, *award)
	return *award, nil
}

// PatchAward merges field edits into one award (the default narrow path).
func (s *Service) PatchAward(ctx context.Context, roomID string, awardID uuid.UUID, patch AwardPatch) (PrizeAward, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return PrizeAward{}, err
	}
	updated, err := ApplyAwardPatch(record, awardID, patch, s.cfg)
	if err != nil {
		return PrizeAward{}, err
	}
	if err := s.store.Save(ctx, updated, s.now().UTC()); err != nil {
		return PrizeAward{}, err
	}
	if s.outbox != nil {
		s.outbox.ScheduleAwardPatch(roomID, awardID, patch)
	}
	return *updated.Award(awardID), nil
}

// SetNotes updates the record notes, honouring the post-approval lock.
func (s *Service) SetNotes(ctx context.Context, roomID, notes string) (Record, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return Record{}, err
	}
	if err := record.SetNotes(notes, s.cfg); err != nil {
		return Record{}, err
	}
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return Record{}, err
	}
	s.schedulePatch(roomID, RecordPatch{Notes: &record.Notes})
	return record, nil
}

// Approve passes the one-way gate and broadcasts the approval stamp.
func (s *Service) Approve(ctx context.Context, roomID, approver, notes string) (Record, error) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return Record{}, err
	}
	if err := record.Approve(approver, notes, s.now().UTC()); err != nil {
		return Record{}, err
	}
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return Record{}, err
	}
	s.schedulePatch(roomID, RecordPatch{
		ApprovedBy: &record.ApprovedBy,
		ApprovedAt: record.ApprovedAt,
		Notes:      &record.Notes,
	})
	return record, nil
}

// MarkArchiveGenerated stamps the archive generation time. Allowed after
// approval; the exporter is the only caller.
func (s *Service) MarkArchiveGenerated(ctx context.Context, roomID string, at time.Time) error {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		return err
	}
	record.ArchiveGeneratedAt = &at
	if err := s.store.Save(ctx, record, s.now().UTC()); err != nil {
		return err
	}
	s.schedulePatch(roomID, RecordPatch{ArchiveGeneratedAt: &at})
	return nil
}

// ApplyRemotePatch applies an inbound record patch from the transport.
// Rejected patches are dropped and logged, never propagated: the next full
// snapshot rebuilds authoritative state regardless.
func (s *Service) ApplyRemotePatch(ctx context.Context, roomID string, patch RecordPatch) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		s.dropPatch(roomID, "load record", err)
		return
	}
	updated, err := ApplyPatch(record, patch, s.cfg)
	if err != nil {
		s.dropPatch(roomID, "apply patch", err)
		return
	}
	if err := s.store.Save(ctx, updated, s.now().UTC()); err != nil {
		s.dropPatch(roomID, "save record", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncPatchApplied()
	}
}

// ApplyRemoteAwardPatch applies an inbound per-award patch.
func (s *Service) ApplyRemoteAwardPatch(ctx context.Context, roomID string, awardID uuid.UUID, patch AwardPatch) {
	record, err := s.store.Get(ctx, roomID)
	if err != nil {
		s.dropPatch(roomID, "load record", err)
		return
	}
	updated, err := ApplyAwardPatch(record, awardID, patch, s.cfg)
	if err != nil {
		s.dropPatch(roomID, "apply award patch", err)
		return
	}
	if err := s.store.Save(ctx, updated, s.now().UTC()); err != nil {
		s.dropPatch(roomID, "save record", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncPatchApplied()
	}
}

func (s *Service) schedulePatch(roomID string, patch RecordPatch) {
	if s.outbox != nil {
		s.outbox.SchedulePatch(roomID, patch)
	}
}

// scheduleAwardBroadcast replicates a transitioned award through the narrow
// per-award message, history included.
func (s *Service) scheduleAwardBroadcast(roomID string, award PrizeAward) {
	if s.outbox == nil {
		return
	}
	status := award.Status
	s.outbox.ScheduleAwardPatch(roomID, award.ID, AwardPatch{
		Status:        &status,
		StatusHistory: award.StatusHistory,
		DeliveredAt:   award.DeliveredAt,
	})
}

func (s *Service) dropPatch(roomID, stage string, err error) {
	if s.metrics != nil {
		s.metrics.IncPatchDropped()
	}
	if s.logger != nil {
		s.logger.Warn("dropped reconciliation patch",
			slog.String("room_id", roomID),
			slog.String("stage", stage),
			slog.Any("error", err))
	}
}
