package recon

import (
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/money"
)

// RecordPatch is a partial update to a reconciliation record as carried on
// the wire. Absent fields leave the record untouched; unknown JSON fields
// are ignored by decoding, never treated as errors.
//
// PrizeAwards replaces the whole award array when present. That is the
// legacy transport behaviour: two editors patching different awards through
// it will race and one change can be lost. Per-award patches (AwardPatch)
// are the default path and should be preferred.
type RecordPatch struct {
	Ledger             *[]AdjustmentEntry `json:"ledger,omitempty"`
	PrizeAwards        *[]PrizeAward      `json:"prizeAwards,omitempty"`
	ApprovedBy         *string            `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time         `json:"approvedAt,omitempty"`
	Notes              *string            `json:"notes,omitempty"`
	ArchiveGeneratedAt *time.Time         `json:"archiveGeneratedAt,omitempty"`
}

// AwardPatch is a partial update to a single prize award, used to avoid
// re-sending the whole array when only one award changes.
type AwardPatch struct {
	Place           *int           `json:"place,omitempty"`
	PrizeName       *string        `json:"prizeName,omitempty"`
	DeclaredValue   *money.Amount  `json:"declaredValue,omitempty"`
	Sponsor         *string        `json:"sponsor,omitempty"`
	WinnerPlayerID  *string        `json:"winnerPlayerId,omitempty"`
	WinnerName      *string        `json:"winnerName,omitempty"`
	Status          *AwardStatus   `json:"status,omitempty"`
	AwardMethod     *AwardMethod   `json:"awardMethod,omitempty"`
	AwardReference  *string        `json:"awardReference,omitempty"`
	AwardNotes      *string        `json:"awardNotes,omitempty"`
	WinnerConfirmed *bool          `json:"winnerConfirmed,omitempty"`
	DeliveredAt     *time.Time     `json:"deliveredAt,omitempty"`
	StatusHistory   []StatusChange `json:"statusHistory,omitempty"`
}

// ApplyPatch shallow-merges a record patch and returns the updated record.
// A non-nil error means the patch was rejected and must be dropped; the
// input record is returned unchanged in that case. Callers log and count
// drops instead of propagating them, since the authoritative state is
// rebuilt from the next full snapshot anyway.
func ApplyPatch(r Record, p RecordPatch, cfg ApprovalConfig) (Record, error) {
	if r.Approved() {
		// Post-approval only the explicitly allowed fields may move.
		if p.Ledger != nil || p.PrizeAwards != nil || p.ApprovedBy != nil || p.ApprovedAt != nil {
			return r, &LockedError{Op: "apply patch"}
		}
		if p.Notes != nil {
			if cfg.NotesLockedAfterApproval {
				return r, &LockedError{Op: "apply patch"}
			}
			r.Notes = *p.Notes
		}
		if p.ArchiveGeneratedAt != nil {
			r.ArchiveGeneratedAt = p.ArchiveGeneratedAt
		}
		return r, nil
	}

	if p.PrizeAwards != nil {
		awards := *p.PrizeAwards
		for i := range awards {
			if err := checkHistoryInvariant(awards[i]); err != nil {
				return r, err
			}
		}
		r.PrizeAwards = awards
	}
	if p.Ledger != nil {
		r.Ledger = *p.Ledger
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.ApprovedBy != nil {
		r.ApprovedBy = *p.ApprovedBy
	}
	if p.ApprovedAt != nil {
		r.ApprovedAt = p.ApprovedAt
	}
	if p.ArchiveGeneratedAt != nil {
		r.ArchiveGeneratedAt = p.ArchiveGeneratedAt
	}
	return r, nil
}

// ApplyAwardPatch merges a per-award patch. It carries replicated state from
// the editing client, so status and history may arrive together; the history
// invariant is still enforced before anything is accepted.
func ApplyAwardPatch(r Record, awardID uuid.UUID, p AwardPatch, cfg ApprovalConfig) (Record, error) {
	if r.Approved() {
		return r, &LockedError{Op: "apply award patch"}
	}
	idx := -1
	for i := range r.PrizeAwards {
		if r.PrizeAwards[i].ID == awardID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return r, ErrAwardNotFound
	}
	merged := r.PrizeAwards[idx]
	if p.Place != nil {
		merged.Place = p.Place
	}
	if p.PrizeName != nil {
		merged.PrizeName = *p.PrizeName
	}
	if p.DeclaredValue != nil {
		if p.DeclaredValue.IsNegative() {
			return r, NewValidationError("declaredValue must not be negative")
		}
		merged.DeclaredValue = *p.DeclaredValue
	}
	if p.Sponsor != nil {
		merged.Sponsor = *p.Sponsor
	}
	if p.WinnerPlayerID != nil {
		merged.WinnerPlayerID = *p.WinnerPlayerID
	}
	if p.WinnerName != nil {
		merged.WinnerName = *p.WinnerName
	}
	if p.AwardMethod != nil {
		method, err := ParseAwardMethod(string(*p.AwardMethod))
		if err != nil {
			return r, err
		}
		merged.AwardMethod = method
	}
	if p.AwardReference != nil {
		merged.AwardReference = *p.AwardReference
	}
	if p.AwardNotes != nil {
		merged.AwardNotes = *p.AwardNotes
	}
	if p.WinnerConfirmed != nil {
		merged.WinnerConfirmed = *p.WinnerConfirmed
	}
	if p.Status != nil {
		status, err := ParseAwardStatus(string(*p.Status))
		if err != nil {
			return r, err
		}
		merged.Status = status
	}
	if p.StatusHistory != nil {
		merged.StatusHistory = p.StatusHistory
	}
	if p.DeliveredAt != nil {
		merged.DeliveredAt = p.DeliveredAt
	}
	if err := checkHistoryInvariant(merged); err != nil {
		return r, err
	}
	// Copy-on-write so the caller's slice is not mutated through the shared
	// backing array when the patch is accepted.
	awards := make([]PrizeAward, len(r.PrizeAwards))
	copy(awards, r.PrizeAwards)
	awards[idx] = merged
	r.PrizeAwards = awards
	return r, nil
}

// checkHistoryInvariant verifies that the history starts at declared and
// ends at the award's current status.
func checkHistoryInvariant(a PrizeAward) error {
	if len(a.StatusHistory) == 0 {
		return NewValidationError("award %s has empty status history", a.ID)
	}
	if a.StatusHistory[0].Status != AwardDeclared {
		return NewValidationError("award %s history must start at declared", a.ID)
	}
	if last := a.StatusHistory[len(a.StatusHistory)-1].Status; last != a.Status {
		return NewValidationError("award %s history ends at %s but status is %s", a.ID, last, a.Status)
	}
	return nil
}
