package recon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordExists is returned when initialising a record for a room that
// already has one.
var ErrRecordExists = errors.New("recon: record already exists for room")

const pgUniqueViolation = "23505"

// Repository persists reconciliation records. The ledger and award arrays
// are stored as JSONB documents alongside the approval columns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the empty record owned by a room at event start.
func (r *Repository) Create(ctx context.Context, roomID string, now time.Time) (Record, error) {
	record := Record{RoomID: roomID}
	ledger, awards, err := marshalDocs(record)
	if err != nil {
		return Record{}, err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO recon_records
(room_id, ledger, prize_awards, approved_by, notes, created_at, updated_at)
VALUES ($1, $2, $3, '', '', $4, $4)`, roomID, ledger, awards, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Record{}, ErrRecordExists
		}
		return Record{}, err
	}
	return record, nil
}

// Get loads the record for a room.
func (r *Repository) Get(ctx context.Context, roomID string) (Record, error) {
	var (
		record    Record
		ledgerDoc []byte
		awardsDoc []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT room_id, ledger, prize_awards, approved_by, approved_at, notes, archive_generated_at
FROM recon_records WHERE room_id = $1`, roomID).
		Scan(&record.RoomID, &ledgerDoc, &awardsDoc, &record.ApprovedBy, &record.ApprovedAt, &record.Notes, &record.ArchiveGeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	if err := json.Unmarshal(ledgerDoc, &record.Ledger); err != nil {
		return Record{}, fmt.Errorf("recon: decode ledger: %w", err)
	}
	if err := json.Unmarshal(awardsDoc, &record.PrizeAwards); err != nil {
		return Record{}, fmt.Errorf("recon: decode prize awards: %w", err)
	}
	return record, nil
}

// Save writes the full record back.
func (r *Repository) Save(ctx context.Context, record Record, now time.Time) error {
	ledger, awards, err := marshalDocs(record)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE recon_records
SET ledger = $2, prize_awards = $3, approved_by = $4, approved_at = $5, notes = $6, archive_generated_at = $7, updated_at = $8
WHERE room_id = $1`,
		record.RoomID, ledger, awards, record.ApprovedBy, record.ApprovedAt, record.Notes, record.ArchiveGeneratedAt, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes the record when the event is torn down.
func (r *Repository) Delete(ctx context.Context, roomID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM recon_records WHERE room_id = $1`, roomID)
	return err
}

func marshalDocs(record Record) (ledger, awards []byte, err error) {
	if record.Ledger == nil {
		record.Ledger = []AdjustmentEntry{}
	}
	if record.PrizeAwards == nil {
		record.PrizeAwards = []PrizeAward{}
	}
	ledger, err = json.Marshal(record.Ledger)
	if err != nil {
		return nil, nil, fmt.Errorf("recon: encode ledger: %w", err)
	}
	awards, err = json.Marshal(record.PrizeAwards)
	if err != nil {
		return nil, nil, fmt.Errorf("recon: encode prize awards: %w", err)
	}
	return ledger, awards, nil
}
