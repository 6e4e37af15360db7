package archive

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/recon"
	"github.com/hostdesk/hostdesk/internal/rooms"
)

// RecordSource exposes the reconciliation state an export renders from.
type RecordSource interface {
	GetRecord(ctx context.Context, roomID string) (recon.Record, error)
	Totals(ctx context.Context, roomID string) (recon.Totals, error)
	MarkArchiveGenerated(ctx context.Context, roomID string, at time.Time) error
}

// RoomSource exposes the session data joined into the bundle.
type RoomSource interface {
	Get(ctx context.Context, roomID string) (rooms.Room, error)
	ListPlayers(ctx context.Context, roomID string) ([]rooms.PlayerRecord, error)
	Leaderboard(ctx context.Context, roomID string) ([]rooms.LeaderboardEntry, error)
}

// Enqueuer submits a build request to the background queue.
type Enqueuer interface {
	EnqueueArchiveBuild(ctx context.Context, requestID uuid.UUID) error
}

// Service orchestrates export requests and snapshot assembly.
type Service struct {
	repo     *Repository
	records  RecordSource
	rooms    RoomSource
	enqueuer Enqueuer
	now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo *Repository, records RecordSource, roomSource RoomSource, enqueuer Enqueuer) *Service {
	return &Service{repo: repo, records: records, rooms: roomSource, enqueuer: enqueuer, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RequestExport records a new export request and queues the build. Final
// exports are refused until the record is approved; draft exports are
// always allowed and render with a draft watermark.
func (s *Service) RequestExport(ctx context.Context, roomID, requestedBy string, draft bool) (Request, error) {
	if strings.TrimSpace(requestedBy) == "" {
		return Request{}, recon.NewValidationError("requestedBy required")
	}
	record, err := s.records.GetRecord(ctx, roomID)
	if err != nil {
		return Request{}, err
	}
	if !draft && !record.Approved() {
		return Request{}, ErrNotApproved
	}
	req := Request{
		ID:          uuid.New(),
		RoomID:      roomID,
		Status:      StatusPending,
		Draft:       draft,
		RequestedBy: requestedBy,
		RequestedAt: s.now().UTC(),
	}
	stored, err := s.repo.Insert(ctx, req)
	if err != nil {
		return Request{}, err
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueArchiveBuild(ctx, stored.ID); err != nil {
			_ = s.repo.MarkFailed(ctx, stored.ID, "enqueue: "+err.Error(), s.now().UTC())
			return Request{}, err
		}
	}
	return stored, nil
}

// Get loads a single request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return s.repo.Get(ctx, id)
}

// ListByRoom returns the room's export history.
func (s *Service) ListByRoom(ctx context.Context, roomID string) ([]Request, error) {
	return s.repo.ListByRoom(ctx, roomID)
}

// Snapshot assembles the single data view a build renders from. Everything
// is fetched here, once; the builder never touches a data source.
func (s *Service) Snapshot(ctx context.Context, roomID string, draft bool) (Snapshot, error) {
	record, err := s.records.GetRecord(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	totals, err := s.records.Totals(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	players, err := s.rooms.ListPlayers(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	leaderboard, err := s.rooms.Leaderboard(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Room:        room,
		Record:      record,
		Totals:      totals,
		Players:     players,
		Leaderboard: leaderboard,
		GeneratedAt: s.now().UTC(),
		Draft:       draft,
	}, nil
}

// MarkInProgress transitions a request out of PENDING.
func (s *Service) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkInProgress(ctx, id)
}

// MarkReady persists the bundle location and, for final exports, stamps
// the reconciliation record with the generation time.
func (s *Service) MarkReady(ctx context.Context, req Request, filePath, digestPath, digest string, fileSize int64) (Request, error) {
	completedAt := s.now().UTC()
	if err := s.repo.MarkReady(ctx, req.ID, filePath, digestPath, digest, fileSize, completedAt); err != nil {
		return Request{}, err
	}
	if !req.Draft {
		if err := s.records.MarkArchiveGenerated(ctx, req.RoomID, completedAt); err != nil {
			return Request{}, err
		}
	}
	return s.repo.Get(ctx, req.ID)
}

// MarkFailed records the failure reason.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return s.repo.MarkFailed(ctx, id, message, s.now().UTC())
}
