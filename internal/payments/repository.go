package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hostdesk/internal/platform/db"
)

// Repository persists payment ledger entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new ledger entry and returns the persisted row.
func (r *Repository) Insert(ctx context.Context, e LedgerEntry) (LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO payment_ledger
(id, room_id, player_id, ledger_type, amount, status, method, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING created_at, updated_at`,
		e.ID, e.RoomID, e.PlayerID, string(e.LedgerType), e.Amount, string(e.Status), e.Method, e.CreatedAt)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// Get loads a single ledger entry by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (LedgerEntry, error) {
	var e LedgerEntry
	var ledgerType, status string
	err := r.pool.QueryRow(ctx, `SELECT id, room_id, player_id, ledger_type, amount, status, method, created_at, updated_at
FROM payment_ledger WHERE id = $1`, id).
		Scan(&e.ID, &e.RoomID, &e.PlayerID, &ledgerType, &e.Amount, &status, &e.Method, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerEntry{}, ErrEntryNotFound
		}
		return LedgerEntry{}, err
	}
	e.LedgerType = LedgerType(ledgerType)
	e.Status = Status(status)
	return e, nil
}

// UpdateStatus advances the confirmation state of an entry. Confirmed rows
// are excluded to keep them immutable at the storage layer as well.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE payment_ledger
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status <> $3`, id, string(status), string(StatusConfirmed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status == StatusConfirmed {
			return ErrEntryConfirmed
		}
		return ErrEntryNotFound
	}
	return nil
}

// Confirm marks an entry confirmed and folds it into the room roster in one
// transaction: an entry fee stamps the player's paid amount and method, an
// extra purchase bumps the extras counters.
func (r *Repository) Confirm(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var e LedgerEntry
		var ledgerType, status string
		err := tx.QueryRow(ctx, `SELECT id, room_id, player_id, ledger_type, amount, status, method
FROM payment_ledger WHERE id = $1 FOR UPDATE`, id).
			Scan(&e.ID, &e.RoomID, &e.PlayerID, &ledgerType, &e.Amount, &status, &e.Method)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEntryNotFound
			}
			return err
		}
		e.LedgerType = LedgerType(ledgerType)
		e.Status = Status(status)
		if e.Status == StatusConfirmed {
			return ErrEntryConfirmed
		}
		if _, err := tx.Exec(ctx, `UPDATE payment_ledger
SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(StatusConfirmed)); err != nil {
			return err
		}
		switch e.LedgerType {
		case LedgerTypeEntryFee:
			_, err = tx.Exec(ctx, `UPDATE room_players
SET entry_paid_amount = $3, payment_method = $4
WHERE room_id = $1 AND player_id = $2`, e.RoomID, e.PlayerID, e.Amount, e.Method)
		case LedgerTypeExtraPurchase:
			_, err = tx.Exec(ctx, `UPDATE room_players
SET extras_count = extras_count + 1, extras_amount = extras_amount + $3
WHERE room_id = $1 AND player_id = $2`, e.RoomID, e.PlayerID, e.Amount)
		}
		return err
	})
}

// ListByRoom returns all ledger entries for a room ordered by creation time.
func (r *Repository) ListByRoom(ctx context.Context, roomID string) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, room_id, player_id, ledger_type, amount, status, method, created_at, updated_at
FROM payment_ledger WHERE room_id = $1 ORDER BY created_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var ledgerType, status string
		if err := rows.Scan(&e.ID, &e.RoomID, &e.PlayerID, &ledgerType, &e.Amount, &status, &e.Method, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.LedgerType = LedgerType(ledgerType)
		e.Status = Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
