package recon

import (
	"sort"

	"github.com/hostdesk/hostdesk/internal/money"
	"github.com/hostdesk/hostdesk/internal/payments"
)

// MethodBreakdown accumulates confirmed payments per payment channel.
// Share is the fraction of startingReceived taken by this method; it is nil
// when startingReceived is zero, because 0% would be misleading there.
type MethodBreakdown struct {
	Method       string
	EntryAmount  money.Amount
	ExtrasAmount money.Amount
	ExtrasCount  int
	Total        money.Amount
	Share        *money.Amount
}

// Totals is the derived, never-stored aggregate of raw payments and manual
// adjustments. ReconciledTotal is the authoritative amount the organizer
// should have on hand.
type Totals struct {
	EntryFee           money.Amount
	EntryCount         int
	TotalEntryReceived money.Amount
	TotalExtrasAmount  money.Amount
	StartingReceived   money.Amount
	Fees               money.Amount
	Refunds            money.Amount
	PrizePayouts       money.Amount
	CashOver           money.Amount
	CashShort          money.Amount
	OtherAdjustments   money.Amount
	AdjustmentsIn      money.Amount
	AdjustmentsOut     money.Amount
	NetAdjustments     money.Amount
	ReconciledTotal    money.Amount
	Methods            []MethodBreakdown
}

// ComputeTotals folds confirmed payments and the adjustment ledger into a
// Totals snapshot. It is pure: the same inputs always produce the same
// output, and nothing here reads a clock or hidden state.
func ComputeTotals(pay []payments.LedgerEntry, adjustments []AdjustmentEntry, entryFee money.Amount) Totals {
	t := Totals{EntryFee: entryFee}
	byMethod := make(map[string]*MethodBreakdown)

	for _, p := range pay {
		if p.Status != payments.StatusConfirmed {
			continue
		}
		m, ok := byMethod[p.Method]
		if !ok {
			m = &MethodBreakdown{Method: p.Method}
			byMethod[p.Method] = m
		}
		switch p.LedgerType {
		case payments.LedgerTypeEntryFee:
			t.TotalEntryReceived = t.TotalEntryReceived.Add(p.Amount)
			t.EntryCount++
			m.EntryAmount = m.EntryAmount.Add(p.Amount)
		case payments.LedgerTypeExtraPurchase:
			t.TotalExtrasAmount = t.TotalExtrasAmount.Add(p.Amount)
			m.ExtrasAmount = m.ExtrasAmount.Add(p.Amount)
			m.ExtrasCount++
		}
		m.Total = m.Total.Add(p.Amount)
	}
	t.StartingReceived = t.TotalEntryReceived.Add(t.TotalExtrasAmount)

	for _, adj := range adjustments {
		switch adj.Type {
		case AdjustmentReceived:
			t.OtherAdjustments = t.OtherAdjustments.Add(adj.Amount)
			t.AdjustmentsIn = t.AdjustmentsIn.Add(adj.Amount)
		case AdjustmentOther:
			t.OtherAdjustments = t.OtherAdjustments.Add(adj.Amount)
			t.AdjustmentsIn = t.AdjustmentsIn.Add(adj.Amount)
		case AdjustmentCashOverShort:
			if adj.ReasonCode == ReasonCashShort {
				t.CashShort = t.CashShort.Add(adj.Amount)
				t.AdjustmentsOut = t.AdjustmentsOut.Add(adj.Amount)
			} else {
				t.CashOver = t.CashOver.Add(adj.Amount)
				t.AdjustmentsIn = t.AdjustmentsIn.Add(adj.Amount)
			}
		case AdjustmentRefund:
			t.Refunds = t.Refunds.Add(adj.Amount)
			t.AdjustmentsOut = t.AdjustmentsOut.Add(adj.Amount)
		case AdjustmentFee:
			t.Fees = t.Fees.Add(adj.Amount)
			t.AdjustmentsOut = t.AdjustmentsOut.Add(adj.Amount)
		case AdjustmentPrizePayout:
			t.PrizePayouts = t.PrizePayouts.Add(adj.Amount)
			t.AdjustmentsOut = t.AdjustmentsOut.Add(adj.Amount)
		}
	}
	t.NetAdjustments = t.AdjustmentsIn.Sub(t.AdjustmentsOut)
	t.ReconciledTotal = t.StartingReceived.Add(t.NetAdjustments)

	t.Methods = make([]MethodBreakdown, 0, len(byMethod))
	for _, m := range byMethod {
		if t.StartingReceived.IsPositive() {
			share := m.Total.Div(t.StartingReceived)
			m.Share = &share
		}
		t.Methods = append(t.Methods, *m)
	}
	sort.Slice(t.Methods, func(i, j int) bool {
		return t.Methods[i].Method < t.Methods[j].Method
	})
	return t
}
