package recon

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApprovalConfig controls what stays editable after the approval gate.
// Observed host workflows differ on whether the free-text notes lock with
// the rest of the record, so it is an explicit switch. The default leaves
// notes editable.
type ApprovalConfig struct {
	NotesLockedAfterApproval bool
}

// AddAdjustment appends a manual correction to the ledger. The ledger is
// append-only and freezes with the record at approval.
func (r *Record) AddAdjustment(in AdjustmentInput, now time.Time) (*AdjustmentEntry, error) {
	if r.Approved() {
		return nil, &LockedError{Op: "add adjustment"}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	entry := AdjustmentEntry{
		ID:         uuid.New(),
		At:         now,
		Type:       in.Type,
		Amount:     in.Amount,
		ReasonCode: in.ReasonCode,
		Note:       in.Note,
		CreatedBy:  in.CreatedBy,
	}
	r.Ledger = append(r.Ledger, entry)
	return &r.Ledger[len(r.Ledger)-1], nil
}

// Approve passes the one-way approval gate: it stamps the approver and
// freezes the ledger and prize awards. Re-approval attempts are rejected,
// never silently accepted, and there is no undo.
func (r *Record) Approve(approver, notes string, now time.Time) error {
	if strings.TrimSpace(approver) == "" {
		return NewValidationError("approver name required")
	}
	if r.Approved() {
		return NewValidationError("record already approved by %s", r.ApprovedBy)
	}
	at := now
	r.ApprovedAt = &at
	r.ApprovedBy = strings.TrimSpace(approver)
	if notes != "" {
		r.Notes = notes
	}
	return nil
}

// SetNotes updates the free-text notes, honouring the post-approval lock
// configuration.
func (r *Record) SetNotes(notes string, cfg ApprovalConfig) error {
	if r.Approved() && cfg.NotesLockedAfterApproval {
		return &LockedError{Op: "set notes"}
	}
	r.Notes = notes
	return nil
}
