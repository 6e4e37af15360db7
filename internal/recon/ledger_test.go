package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hostdesk/hostdesk/internal/payments"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func confirmed(ledgerType payments.LedgerType, amount, method string) payments.LedgerEntry {
	return payments.LedgerEntry{
		LedgerType: ledgerType,
		Amount:     amt(amount),
		Status:     payments.StatusConfirmed,
		Method:     method,
	}
}

func TestComputeTotalsExampleScenario(t *testing.T) {
	pay := []payments.LedgerEntry{
		confirmed(payments.LedgerTypeEntryFee, "10.00", "cash"),
		confirmed(payments.LedgerTypeEntryFee, "10.00", "cash"),
		confirmed(payments.LedgerTypeExtraPurchase, "2.00", "card"),
	}
	adjustments := []AdjustmentEntry{
		{Type: AdjustmentFee, Amount: amt("1.50"), CreatedBy: "host"},
	}

	totals := ComputeTotals(pay, adjustments, amt("10.00"))

	require.True(t, totals.TotalEntryReceived.Equal(amt("20.00")))
	require.True(t, totals.TotalExtrasAmount.Equal(amt("2.00")))
	require.True(t, totals.StartingReceived.Equal(amt("22.00")))
	require.True(t, totals.NetAdjustments.Equal(amt("-1.50")))
	require.True(t, totals.ReconciledTotal.Equal(amt("20.50")))
	require.Equal(t, 2, totals.EntryCount)
}

func TestComputeTotalsIgnoresUnconfirmedPayments(t *testing.T) {
	pay := []payments.LedgerEntry{
		confirmed(payments.LedgerTypeEntryFee, "10.00", "cash"),
		{LedgerType: payments.LedgerTypeEntryFee, Amount: amt("10.00"), Status: payments.StatusExpected, Method: "cash"},
		{LedgerType: payments.LedgerTypeExtraPurchase, Amount: amt("5.00"), Status: payments.StatusClaimed, Method: "card"},
	}

	totals := ComputeTotals(pay, nil, amt("10.00"))

	require.True(t, totals.TotalEntryReceived.Equal(amt("10.00")))
	require.True(t, totals.TotalExtrasAmount.IsZero())
	require.Equal(t, 1, totals.EntryCount)
}

func TestComputeTotalsMethodBreakdown(t *testing.T) {
	pay := []payments.LedgerEntry{
		confirmed(payments.LedgerTypeEntryFee, "10.00", "cash"),
		confirmed(payments.LedgerTypeEntryFee, "10.00", "card"),
		confirmed(payments.LedgerTypeExtraPurchase, "2.00", "card"),
		confirmed(payments.LedgerTypeExtraPurchase, "3.00", "card"),
	}

	totals := ComputeTotals(pay, nil, amt("10.00"))

	require.Len(t, totals.Methods, 2)
	// Deterministic order: method name ascending.
	card := totals.Methods[0]
	cash := totals.Methods[1]
	require.Equal(t, "card", card.Method)
	require.Equal(t, "cash", cash.Method)
	require.True(t, card.EntryAmount.Equal(amt("10.00")))
	require.True(t, card.ExtrasAmount.Equal(amt("5.00")))
	require.Equal(t, 2, card.ExtrasCount)
	require.True(t, card.Total.Equal(amt("15.00")))
	require.NotNil(t, card.Share)
	require.True(t, card.Share.Equal(amt("15").Div(amt("25"))))
	require.NotNil(t, cash.Share)
}

func TestComputeTotalsShareUndefinedWhenNothingReceived(t *testing.T) {
	// A confirmed comped entry: the method is observed but nothing was
	// received, so the share must stay undefined rather than read as 0%.
	pay := []payments.LedgerEntry{
		{LedgerType: payments.LedgerTypeEntryFee, Amount: amt("0.00"), Status: payments.StatusConfirmed, Method: "cash"},
	}

	totals := ComputeTotals(pay, nil, amt("10.00"))

	require.True(t, totals.StartingReceived.IsZero())
	require.Len(t, totals.Methods, 1)
	require.Nil(t, totals.Methods[0].Share)
}

func TestComputeTotalsAdjustmentFold(t *testing.T) {
	adjustments := []AdjustmentEntry{
		{Type: AdjustmentReceived, Amount: amt("5.00")},
		{Type: AdjustmentOther, Amount: amt("1.00")},
		{Type: AdjustmentCashOverShort, ReasonCode: ReasonCashOver, Amount: amt("0.40")},
		{Type: AdjustmentCashOverShort, ReasonCode: ReasonCashShort, Amount: amt("0.15")},
		{Type: AdjustmentRefund, Amount: amt("10.00")},
		{Type: AdjustmentFee, Amount: amt("2.00")},
		{Type: AdjustmentPrizePayout, Amount: amt("25.00")},
	}

	totals := ComputeTotals(nil, adjustments, amt("10.00"))

	require.True(t, totals.AdjustmentsIn.Equal(amt("6.40")))
	require.True(t, totals.AdjustmentsOut.Equal(amt("37.15")))
	require.True(t, totals.NetAdjustments.Equal(totals.AdjustmentsIn.Sub(totals.AdjustmentsOut)))
	require.True(t, totals.ReconciledTotal.Equal(totals.StartingReceived.Add(totals.NetAdjustments)))
	require.True(t, totals.Refunds.Equal(amt("10.00")))
	require.True(t, totals.Fees.Equal(amt("2.00")))
	require.True(t, totals.PrizePayouts.Equal(amt("25.00")))
	require.True(t, totals.CashOver.Equal(amt("0.40")))
	require.True(t, totals.CashShort.Equal(amt("0.15")))
}

func TestComputeTotalsDeterministic(t *testing.T) {
	pay := []payments.LedgerEntry{
		confirmed(payments.LedgerTypeEntryFee, "7.50", "cash"),
		confirmed(payments.LedgerTypeExtraPurchase, "1.25", "transfer"),
	}
	adjustments := []AdjustmentEntry{
		{Type: AdjustmentRefund, Amount: amt("7.50")},
	}

	first := ComputeTotals(pay, adjustments, amt("7.50"))
	second := ComputeTotals(pay, adjustments, amt("7.50"))

	require.Equal(t, first, second)
}
