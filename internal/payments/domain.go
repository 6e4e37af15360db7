package payments

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/money"
)

// LedgerType distinguishes what a payment paid for.
type LedgerType string

const (
	LedgerTypeEntryFee      LedgerType = "entry_fee"
	LedgerTypeExtraPurchase LedgerType = "extra_purchase"
)

// Status captures the confirmation state of a payment. Only confirmed
// entries count toward reconciliation totals.
type Status string

const (
	StatusExpected  Status = "expected"
	StatusClaimed   Status = "claimed"
	StatusConfirmed Status = "confirmed"
)

// LedgerEntry is one confirmed (or pending) money movement tied to an entry
// fee or an extra purchase. Confirmed entries are immutable.
type LedgerEntry struct {
	ID         uuid.UUID
	RoomID     string
	PlayerID   string
	LedgerType LedgerType
	Amount     money.Amount
	Status     Status
	Method     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

var (
	ErrEntryNotFound = errors.New("payments: ledger entry not found")
	// ErrEntryConfirmed is returned when mutating an already confirmed entry.
	ErrEntryConfirmed    = errors.New("payments: confirmed entry is immutable")
	ErrInvalidLedgerType = errors.New("payments: invalid ledger type")
	ErrInvalidStatus     = errors.New("payments: invalid status")
)

// ParseLedgerType validates a ledger type string into the closed enum.
func ParseLedgerType(v string) (LedgerType, error) {
	switch LedgerType(strings.TrimSpace(strings.ToLower(v))) {
	case LedgerTypeEntryFee:
		return LedgerTypeEntryFee, nil
	case LedgerTypeExtraPurchase:
		return LedgerTypeExtraPurchase, nil
	default:
		return "", ErrInvalidLedgerType
	}
}

// ParseStatus validates a payment status string into the closed enum.
func ParseStatus(v string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(v))) {
	case StatusExpected:
		return StatusExpected, nil
	case StatusClaimed:
		return StatusClaimed, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	default:
		return "", ErrInvalidStatus
	}
}

// RecordInput captures a new payment reported by an external payment flow.
type RecordInput struct {
	RoomID     string
	PlayerID   string
	LedgerType LedgerType
	Amount     money.Amount
	Status     Status
	Method     string
}

// Validate ensures the record input is coherent.
func (in RecordInput) Validate() error {
	if strings.TrimSpace(in.RoomID) == "" {
		return errors.New("payments: room id required")
	}
	if in.Amount.IsNegative() {
		return errors.New("payments: amount must not be negative")
	}
	if _, err := ParseLedgerType(string(in.LedgerType)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(in.Status)); err != nil {
		return err
	}
	return nil
}
