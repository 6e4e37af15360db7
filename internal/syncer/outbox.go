package syncer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/recon"
)

// DefaultQuietPeriod is the debounce window for outgoing patches.
const DefaultQuietPeriod = 300 * time.Millisecond

// PatchPublisher delivers a coalesced patch to the transport.
type PatchPublisher interface {
	PublishPatch(ctx context.Context, roomID string, patch recon.RecordPatch) error
	PublishAwardPatch(ctx context.Context, roomID string, awardID uuid.UUID, patch recon.AwardPatch) error
}

// Outbox implements recon.PatchScheduler. Edits accumulate into one pending
// patch per room (and per award), and the debounced timer flushes the merged
// result as a single message.
type Outbox struct {
	mu            sync.Mutex
	sched         *Scheduler
	publisher     PatchPublisher
	logger        *slog.Logger
	timeout       time.Duration
	pendingRecord map[string]recon.RecordPatch
	pendingAward  map[string]recon.AwardPatch
}

// NewOutbox constructs an Outbox with the given quiet period.
func NewOutbox(publisher PatchPublisher, logger *slog.Logger, quiet time.Duration) *Outbox {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	o := &Outbox{
		publisher:     publisher,
		logger:        logger,
		timeout:       5 * time.Second,
		pendingRecord: make(map[string]recon.RecordPatch),
		pendingAward:  make(map[string]recon.AwardPatch),
	}
	o.sched = NewScheduler(quiet, o.flushKey)
	return o
}

// SchedulePatch merges a record patch into the pending one for the room and
// re-arms its debounce timer.
func (o *Outbox) SchedulePatch(roomID string, patch recon.RecordPatch) {
	o.mu.Lock()
	o.pendingRecord[roomID] = mergeRecordPatch(o.pendingRecord[roomID], patch)
	o.mu.Unlock()
	o.sched.Schedule("record\x00" + roomID)
}

// ScheduleAwardPatch merges a per-award patch and re-arms its timer.
func (o *Outbox) ScheduleAwardPatch(roomID string, awardID uuid.UUID, patch recon.AwardPatch) {
	key := roomID + "\x00" + awardID.String()
	o.mu.Lock()
	o.pendingAward[key] = mergeAwardPatch(o.pendingAward[key], patch)
	o.mu.Unlock()
	o.sched.Schedule("award\x00" + key)
}

// Flush publishes everything pending without waiting for quiescence.
func (o *Outbox) Flush() {
	o.sched.Flush()
}

// Stop cancels all pending work.
func (o *Outbox) Stop() {
	o.sched.Stop()
}

func (o *Outbox) flushKey(key string) {
	kind, rest, ok := strings.Cut(key, "\x00")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	switch kind {
	case "record":
		o.mu.Lock()
		patch, ok := o.pendingRecord[rest]
		delete(o.pendingRecord, rest)
		o.mu.Unlock()
		if !ok {
			return
		}
		if err := o.publisher.PublishPatch(ctx, rest, patch); err != nil {
			o.warn("publish record patch", rest, err)
		}
	case "award":
		roomID, awardStr, ok := strings.Cut(rest, "\x00")
		if !ok {
			return
		}
		awardID, err := uuid.Parse(awardStr)
		if err != nil {
			return
		}
		o.mu.Lock()
		patch, found := o.pendingAward[rest]
		delete(o.pendingAward, rest)
		o.mu.Unlock()
		if !found {
			return
		}
		if err := o.publisher.PublishAwardPatch(ctx, roomID, awardID, patch); err != nil {
			o.warn("publish award patch", roomID, err)
		}
	}
}

func (o *Outbox) warn(stage, roomID string, err error) {
	if o.logger != nil {
		o.logger.Warn("outbox publish failed",
			slog.String("stage", stage),
			slog.String("room_id", roomID),
			slog.Any("error", err))
	}
}

// mergeRecordPatch overlays next onto prev field by field.
func mergeRecordPatch(prev, next recon.RecordPatch) recon.RecordPatch {
	if next.Ledger != nil {
		prev.Ledger = next.Ledger
	}
	if next.PrizeAwards != nil {
		prev.PrizeAwards = next.PrizeAwards
	}
	if next.ApprovedBy != nil {
		prev.ApprovedBy = next.ApprovedBy
	}
	if next.ApprovedAt != nil {
		prev.ApprovedAt = next.ApprovedAt
	}
	if next.Notes != nil {
		prev.Notes = next.Notes
	}
	if next.ArchiveGeneratedAt != nil {
		prev.ArchiveGeneratedAt = next.ArchiveGeneratedAt
	}
	return prev
}

// mergeAwardPatch overlays next onto prev field by field.
func mergeAwardPatch(prev, next recon.AwardPatch) recon.AwardPatch {
	if next.Place != nil {
		prev.Place = next.Place
	}
	if next.PrizeName != nil {
		prev.PrizeName = next.PrizeName
	}
	if next.DeclaredValue != nil {
		prev.DeclaredValue = next.DeclaredValue
	}
	if next.Sponsor != nil {
		prev.Sponsor = next.Sponsor
	}
	if next.WinnerPlayerID != nil {
		prev.WinnerPlayerID = next.WinnerPlayerID
	}
	if next.WinnerName != nil {
		prev.WinnerName = next.WinnerName
	}
	if next.Status != nil {
		prev.Status = next.Status
	}
	if next.AwardMethod != nil {
		prev.AwardMethod = next.AwardMethod
	}
	if next.AwardReference != nil {
		prev.AwardReference = next.AwardReference
	}
	if next.AwardNotes != nil {
		prev.AwardNotes = next.AwardNotes
	}
	if next.WinnerConfirmed != nil {
		prev.WinnerConfirmed = next.WinnerConfirmed
	}
	if next.DeliveredAt != nil {
		prev.DeliveredAt = next.DeliveredAt
	}
	if next.StatusHistory != nil {
		prev.StatusHistory = next.StatusHistory
	}
	return prev
}
