package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists archive requests and their lifecycle state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new archive request in PENDING state.
func (r *Repository) Insert(ctx context.Context, req Request) (Request, error) {
	if r == nil || r.pool == nil {
		return Request{}, fmt.Errorf("archive: repository not initialised")
	}
	const insert = `INSERT INTO archive_requests (id, room_id, status, draft, requested_by, requested_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, insert, req.ID, req.RoomID, StatusPending, req.Draft, req.RequestedBy, req.RequestedAt)
	if err != nil {
		return Request{}, err
	}
	return r.Get(ctx, req.ID)
}

// Get loads a request by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	if r == nil || r.pool == nil {
		return Request{}, fmt.Errorf("archive: repository not initialised")
	}
	const query = `SELECT id, room_id, status, draft, requested_by, requested_at,
completed_at, COALESCE(file_path,''), COALESCE(digest_path,''), COALESCE(digest,''),
file_size, COALESCE(error_message,'')
FROM archive_requests WHERE id = $1`
	var req Request
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.RoomID, &req.Status, &req.Draft, &req.RequestedBy, &req.RequestedAt,
		&req.CompletedAt, &req.FilePath, &req.DigestPath, &req.Digest,
		&req.FileSize, &req.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, err
	}
	return req, nil
}

// ListByRoom returns a room's requests, newest first.
func (r *Repository) ListByRoom(ctx context.Context, roomID string) ([]Request, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("archive: repository not initialised")
	}
	const query = `SELECT id, room_id, status, draft, requested_by, requested_at,
completed_at, COALESCE(file_path,''), COALESCE(digest_path,''), COALESCE(digest,''),
file_size, COALESCE(error_message,'')
FROM archive_requests WHERE room_id = $1 ORDER BY requested_at DESC`
	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(
			&req.ID, &req.RoomID, &req.Status, &req.Draft, &req.RequestedBy, &req.RequestedAt,
			&req.CompletedAt, &req.FilePath, &req.DigestPath, &req.Digest,
			&req.FileSize, &req.ErrorMessage,
		); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// MarkInProgress transitions a pending request to IN_PROGRESS.
func (r *Repository) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("archive: repository not initialised")
	}
	const update = `UPDATE archive_requests SET status = $2 WHERE id = $1 AND status = $3`
	tag, err := r.pool.Exec(ctx, update, id, StatusInProgress, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// MarkReady persists the produced bundle location and digest.
func (r *Repository) MarkReady(ctx context.Context, id uuid.UUID, filePath, digestPath, digest string, fileSize int64, completedAt time.Time) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("archive: repository not initialised")
	}
	const update = `UPDATE archive_requests
SET status = $2, file_path = $3, digest_path = $4, digest = $5, file_size = $6,
    completed_at = $7, error_message = ''
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, update, id, StatusReady, filePath, digestPath, digest, fileSize, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, message string, completedAt time.Time) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("archive: repository not initialised")
	}
	const update = `UPDATE archive_requests
SET status = $2, error_message = $3, completed_at = $4
WHERE id = $1`
	tag, err := r.pool.Exec(ctx, update, id, StatusFailed, message, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListReady returns the READY requests for an integrity sweep.
func (r *Repository) ListReady(ctx context.Context, limit int) ([]Request, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("archive: repository not initialised")
	}
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, room_id, status, draft, requested_by, requested_at,
completed_at, COALESCE(file_path,''), COALESCE(digest_path,''), COALESCE(digest,''),
file_size, COALESCE(error_message,'')
FROM archive_requests WHERE status = 'READY' ORDER BY completed_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(
			&req.ID, &req.RoomID, &req.Status, &req.Draft, &req.RequestedBy, &req.RequestedAt,
			&req.CompletedAt, &req.FilePath, &req.DigestPath, &req.Digest,
			&req.FileSize, &req.ErrorMessage,
		); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
