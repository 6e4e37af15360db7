package recon

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DeclareAward appends a new award in the declared state. Rejected while the
// record is approved.
func (r *Record) DeclareAward(in DeclareAwardInput, now time.Time) (*PrizeAward, error) {
	if r.Approved() {
		return nil, &LockedError{Op: "declare award"}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	award := PrizeAward{
		ID:             uuid.New(),
		Place:          in.Place,
		PrizeName:      in.PrizeName,
		DeclaredValue:  in.DeclaredValue,
		Sponsor:        in.Sponsor,
		WinnerPlayerID: in.WinnerPlayerID,
		WinnerName:     in.WinnerName,
		Status:         AwardDeclared,
		DeclaredAt:     now,
		StatusHistory: []StatusChange{
			{Status: AwardDeclared, At: now, By: in.DeclaredBy},
		},
	}
	r.PrizeAwards = append(r.PrizeAwards, award)
	return &r.PrizeAwards[len(r.PrizeAwards)-1], nil
}

// TransitionAward moves an award to the requested status, enforcing the
// lifecycle guards. A rejected transition leaves the award untouched: no
// state change and no history entry.
func (r *Record) TransitionAward(id uuid.UUID, next AwardStatus, actor, note string, now time.Time) error {
	if r.Approved() {
		return &LockedError{Op: "award transition"}
	}
	award := r.Award(id)
	if award == nil {
		return ErrAwardNotFound
	}
	if err := checkTransition(*award, next); err != nil {
		return err
	}
	award.Status = next
	award.StatusHistory = append(award.StatusHistory, StatusChange{Status: next, At: now, By: actor, Note: note})
	if next == AwardDelivered {
		at := now
		award.DeliveredAt = &at
	}
	return nil
}

// ReopenAward moves a terminal award back to declared as a correction
// mechanism. It is a transition like any other: it appends a declared
// history entry and is refused once the record is approved.
func (r *Record) ReopenAward(id uuid.UUID, actor, note string, now time.Time) error {
	if r.Approved() {
		return &LockedError{Op: "award reopen"}
	}
	award := r.Award(id)
	if award == nil {
		return ErrAwardNotFound
	}
	if !award.Terminal() {
		return NewValidationError("only a terminal award can be reopened (status %s)", award.Status)
	}
	award.Status = AwardDeclared
	award.DeliveredAt = nil
	award.StatusHistory = append(award.StatusHistory, StatusChange{Status: AwardDeclared, At: now, By: actor, Note: note})
	return nil
}

func checkTransition(a PrizeAward, next AwardStatus) error {
	if next == a.Status {
		return NewValidationError("award already %s", next)
	}
	switch a.Status {
	case AwardDeclared:
		// All lifecycle states are reachable from declared.
	case AwardCollected:
		if next != AwardDelivered {
			return NewValidationError("collected award can only move to delivered, not %s", next)
		}
	default:
		return NewValidationError("award is %s; terminal states require a reopen first", a.Status)
	}
	switch next {
	case AwardDeclared:
		return NewValidationError("use reopen to return an award to declared")
	case AwardDelivered:
		if a.AwardMethod == "" {
			return NewValidationError("awardMethod required")
		}
		if !a.WinnerConfirmed {
			return NewValidationError("winnerConfirmed required")
		}
	}
	return nil
}

// SortAwards orders awards for display: place ascending with missing place
// last, ties broken by case-insensitive prize name.
func SortAwards(awards []PrizeAward) {
	// collate.Collator is not safe for concurrent use; build one per call.
	prizeNameCollator := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(awards, func(i, j int) bool {
		pi, pj := awards[i].Place, awards[j].Place
		switch {
		case pi == nil && pj == nil:
		case pi == nil:
			return false
		case pj == nil:
			return true
		case *pi != *pj:
			return *pi < *pj
		}
		return prizeNameCollator.CompareString(awards[i].PrizeName, awards[j].PrizeName) < 0
	})
}
