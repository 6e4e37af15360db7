// Package recon implements the financial reconciliation record for a room:
// the adjustment ledger, the prize award lifecycle, and the one-way approval
// gate that freezes both.
package recon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/money"
)

// AdjustmentType classifies a manual correction layered on the raw ledger.
type AdjustmentType string

const (
	AdjustmentReceived      AdjustmentType = "received"
	AdjustmentRefund        AdjustmentType = "refund"
	AdjustmentFee           AdjustmentType = "fee"
	AdjustmentCashOverShort AdjustmentType = "cash_over_short"
	AdjustmentOther         AdjustmentType = "other"
	AdjustmentPrizePayout   AdjustmentType = "prize_payout"
)

// ReasonCode disambiguates cash_over_short adjustments.
type ReasonCode string

const (
	ReasonCashOver  ReasonCode = "cash_over"
	ReasonCashShort ReasonCode = "cash_short"
)

// AwardStatus enumerates the prize award lifecycle.
type AwardStatus string

const (
	AwardDeclared  AwardStatus = "declared"
	AwardCollected AwardStatus = "collected"
	AwardDelivered AwardStatus = "delivered"
	AwardUnclaimed AwardStatus = "unclaimed"
	AwardRefused   AwardStatus = "refused"
	AwardReturned  AwardStatus = "returned"
	AwardCanceled  AwardStatus = "canceled"
)

// AwardMethod describes how a prize reaches the winner. Empty means the
// host has not chosen yet.
type AwardMethod string

const (
	MethodCollection AwardMethod = "collection"
	MethodDelivery   AwardMethod = "delivery"
)

// AdjustmentEntry is one manual correction. The ledger is append-only;
// insertion order matters for display only, never for totals.
type AdjustmentEntry struct {
	ID         uuid.UUID      `json:"id"`
	At         time.Time      `json:"at"`
	Type       AdjustmentType `json:"type"`
	Amount     money.Amount   `json:"amount"`
	ReasonCode ReasonCode     `json:"reasonCode,omitempty"`
	Note       string         `json:"note,omitempty"`
	CreatedBy  string         `json:"createdBy"`
}

// StatusChange is one append-only history entry on a prize award.
type StatusChange struct {
	Status AwardStatus `json:"status"`
	At     time.Time   `json:"at"`
	By     string      `json:"by"`
	Note   string      `json:"note,omitempty"`
}

// PrizeAward tracks one prize assigned to one declared winner.
//
// Invariant: StatusHistory always ends with an entry matching Status, and
// its first entry is always declared.
type PrizeAward struct {
	ID              uuid.UUID      `json:"prizeAwardId"`
	Place           *int           `json:"place,omitempty"`
	PrizeName       string         `json:"prizeName"`
	DeclaredValue   money.Amount   `json:"declaredValue"`
	Sponsor         string         `json:"sponsor,omitempty"`
	WinnerPlayerID  string         `json:"winnerPlayerId,omitempty"`
	WinnerName      string         `json:"winnerName,omitempty"`
	Status          AwardStatus    `json:"status"`
	AwardMethod     AwardMethod    `json:"awardMethod,omitempty"`
	AwardReference  string         `json:"awardReference,omitempty"`
	AwardNotes      string         `json:"awardNotes,omitempty"`
	WinnerConfirmed bool           `json:"winnerConfirmed"`
	DeclaredAt      time.Time      `json:"declaredAt"`
	DeliveredAt     *time.Time     `json:"deliveredAt,omitempty"`
	StatusHistory   []StatusChange `json:"statusHistory"`
}

// Terminal reports whether the award sits in a terminal state. collected is
// a valid intermediate step toward delivered in the in-person handoff flow.
func (a PrizeAward) Terminal() bool {
	switch a.Status {
	case AwardDeclared, AwardCollected:
		return false
	default:
		return true
	}
}

// Record is the reconciliation aggregate for one room. Once ApprovedAt is
// set the record is immutable except for fields explicitly allowed after
// approval.
type Record struct {
	RoomID             string            `json:"roomId"`
	Ledger             []AdjustmentEntry `json:"ledger"`
	PrizeAwards        []PrizeAward      `json:"prizeAwards"`
	ApprovedBy         string            `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time        `json:"approvedAt,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	ArchiveGeneratedAt *time.Time        `json:"archiveGeneratedAt,omitempty"`
}

// Approved reports whether the one-way approval gate has been passed.
func (r Record) Approved() bool {
	return r.ApprovedAt != nil
}

// Award returns a pointer to the award with the given id, or nil.
func (r *Record) Award(id uuid.UUID) *PrizeAward {
	for i := range r.PrizeAwards {
		if r.PrizeAwards[i].ID == id {
			return &r.PrizeAwards[i]
		}
	}
	return nil
}

// ValidationError reports a guard condition that was not met. Reason names
// the missing precondition so callers can surface it directly.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "recon: " + e.Reason
}

// NewValidationError formats a guard failure.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// LockedError reports a mutation attempted after approval.
type LockedError struct {
	Op string
}

func (e *LockedError) Error() string {
	if e.Op == "" {
		return "recon: record locked after approval"
	}
	return "recon: " + e.Op + ": record locked after approval"
}

var (
	ErrRecordNotFound = errors.New("recon: record not found")
	ErrAwardNotFound  = errors.New("recon: prize award not found")
)

// ParseAdjustmentType validates an adjustment type string.
func ParseAdjustmentType(v string) (AdjustmentType, error) {
	switch AdjustmentType(strings.TrimSpace(strings.ToLower(v))) {
	case AdjustmentReceived:
		return AdjustmentReceived, nil
	case AdjustmentRefund:
		return AdjustmentRefund, nil
	case AdjustmentFee:
		return AdjustmentFee, nil
	case AdjustmentCashOverShort:
		return AdjustmentCashOverShort, nil
	case AdjustmentOther:
		return AdjustmentOther, nil
	case AdjustmentPrizePayout:
		return AdjustmentPrizePayout, nil
	default:
		return "", NewValidationError("unknown adjustment type %q", v)
	}
}

// ParseAwardStatus validates an award status string.
func ParseAwardStatus(v string) (AwardStatus, error) {
	switch AwardStatus(strings.TrimSpace(strings.ToLower(v))) {
	case AwardDeclared:
		return AwardDeclared, nil
	case AwardCollected:
		return AwardCollected, nil
	case AwardDelivered:
		return AwardDelivered, nil
	case AwardUnclaimed:
		return AwardUnclaimed, nil
	case AwardRefused:
		return AwardRefused, nil
	case AwardReturned:
		return AwardReturned, nil
	case AwardCanceled:
		return AwardCanceled, nil
	default:
		return "", NewValidationError("unknown award status %q", v)
	}
}

// ParseAwardMethod validates an award method string. Empty input is allowed
// and means "not chosen yet".
func ParseAwardMethod(v string) (AwardMethod, error) {
	switch AwardMethod(strings.TrimSpace(strings.ToLower(v))) {
	case "":
		return "", nil
	case MethodCollection:
		return MethodCollection, nil
	case MethodDelivery:
		return MethodDelivery, nil
	default:
		return "", NewValidationError("unknown award method %q", v)
	}
}

// AdjustmentInput captures a new ledger adjustment.
type AdjustmentInput struct {
	Type       AdjustmentType
	Amount     money.Amount
	ReasonCode ReasonCode
	Note       string
	CreatedBy  string
}

// Validate enforces the adjustment construction rules.
func (in AdjustmentInput) Validate() error {
	if _, err := ParseAdjustmentType(string(in.Type)); err != nil {
		return err
	}
	if in.Amount.IsNegative() {
		return NewValidationError("adjustment amount must not be negative")
	}
	if in.Type == AdjustmentCashOverShort {
		switch in.ReasonCode {
		case ReasonCashOver, ReasonCashShort:
		default:
			return NewValidationError("reasonCode required for cash_over_short (cash_over or cash_short)")
		}
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return NewValidationError("createdBy required")
	}
	return nil
}

// DeclareAwardInput captures a new prize declaration.
type DeclareAwardInput struct {
	Place          *int
	PrizeName      string
	DeclaredValue  money.Amount
	Sponsor        string
	WinnerPlayerID string
	WinnerName     string
	DeclaredBy     string
}

// Validate enforces the declaration rules.
func (in DeclareAwardInput) Validate() error {
	if strings.TrimSpace(in.PrizeName) == "" {
		return NewValidationError("prizeName required")
	}
	if in.DeclaredValue.IsNegative() {
		return NewValidationError("declaredValue must not be negative")
	}
	if in.Place != nil && *in.Place < 1 {
		return NewValidationError("place must be positive when set")
	}
	return nil
}
