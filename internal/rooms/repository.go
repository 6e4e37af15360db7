package rooms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hostdesk/internal/money"
)

// Repository loads room metadata, rosters, and standings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads a room by id.
func (r *Repository) Get(ctx context.Context, id string) (Room, error) {
	var room Room
	err := r.pool.QueryRow(ctx, `SELECT id, name, entry_fee, currency, host_id, created_at, closed_at
FROM rooms WHERE id = $1`, id).
		Scan(&room.ID, &room.Name, &room.EntryFee, &room.Currency, &room.HostID, &room.CreatedAt, &room.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, err
	}
	return room, nil
}

// EntryFee resolves the configured entry fee for a room.
func (r *Repository) EntryFee(ctx context.Context, roomID string) (money.Amount, error) {
	room, err := r.Get(ctx, roomID)
	if err != nil {
		return money.Zero, err
	}
	return room.EntryFee, nil
}

// ListPlayers returns the payment roster for a room ordered by name.
func (r *Repository) ListPlayers(ctx context.Context, roomID string) ([]PlayerRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT player_id, name, disqualified, entry_paid_amount, payment_method, extras_count, extras_amount
FROM room_players WHERE room_id = $1 ORDER BY name`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var players []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Disqualified, &p.EntryPaid, &p.PaymentMethod, &p.ExtrasCount, &p.ExtrasAmount); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Leaderboard returns the final standings for a room ordered by rank.
func (r *Repository) Leaderboard(ctx context.Context, roomID string) ([]LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT rank, player_id, name, score
FROM room_leaderboard WHERE room_id = $1 ORDER BY rank`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.PlayerID, &e.Name, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
