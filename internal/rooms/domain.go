// Package rooms holds the per-room session data consumed by the
// reconciliation and archive modules: the player roster and the final
// standings snapshot.
package rooms

import (
	"errors"
	"time"

	"github.com/hostdesk/hostdesk/internal/money"
)

// PlayerRecord is the payment-relevant view of one player in a room.
type PlayerRecord struct {
	PlayerID      string
	Name          string
	Disqualified  bool
	EntryPaid     money.Amount
	PaymentMethod string
	ExtrasCount   int
	ExtrasAmount  money.Amount
}

// TotalPaid returns entry fee plus extras for the player.
func (p PlayerRecord) TotalPaid() money.Amount {
	return p.EntryPaid.Add(p.ExtrasAmount)
}

// LeaderboardEntry is one row of the final standings.
type LeaderboardEntry struct {
	Rank     int
	PlayerID string
	Name     string
	Score    int
}

// Room captures the event session metadata owning a reconciliation record.
type Room struct {
	ID        string
	Name      string
	EntryFee  money.Amount
	Currency  string
	HostID    string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

var ErrRoomNotFound = errors.New("rooms: room not found")
