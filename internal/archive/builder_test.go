package archive

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hostdesk/hostdesk/internal/money"
	"github.com/hostdesk/hostdesk/internal/recon"
	"github.com/hostdesk/hostdesk/internal/rooms"
)

var testGeneratedAt = time.Date(2025, 6, 7, 22, 0, 0, 0, time.UTC)

func amt(s string) money.Amount {
	return decimal.RequireFromString(s)
}

func approvedRecord(t *testing.T) recon.Record {
	t.Helper()
	approvedAt := testGeneratedAt.Add(-time.Hour)
	place := 1
	award := recon.PrizeAward{
		ID:            uuid.New(),
		Place:         &place,
		PrizeName:     "Grand Prize",
		DeclaredValue: amt("50.00"),
		WinnerName:    "Dana",
		Status:        recon.AwardDelivered,
		AwardMethod:   recon.MethodCollection,
		DeclaredAt:    approvedAt.Add(-time.Hour),
		StatusHistory: []recon.StatusChange{
			{Status: recon.AwardDeclared, At: approvedAt.Add(-time.Hour), By: "host"},
			{Status: recon.AwardDelivered, At: approvedAt.Add(-30 * time.Minute), By: "host"},
		},
	}
	return recon.Record{
		RoomID: "room-1",
		Ledger: []recon.AdjustmentEntry{
			{ID: uuid.New(), At: approvedAt.Add(-2 * time.Hour), Type: recon.AdjustmentRefund, Amount: amt("2.00"), Note: "duplicate charge", CreatedBy: "host"},
		},
		PrizeAwards: []recon.PrizeAward{award},
		ApprovedBy:  "host",
		ApprovedAt:  &approvedAt,
		Notes:       "all settled",
	}
}

func testSnapshot(t *testing.T) Snapshot {
	t.Helper()
	return Snapshot{
		Room: rooms.Room{ID: "room-1", Name: "Friday Quiz", EntryFee: amt("10.00"), Currency: "USD"},
		Record: approvedRecord(t),
		Totals: recon.Totals{
			EntryFee:           amt("10.00"),
			EntryCount:         2,
			TotalEntryReceived: amt("20.00"),
			TotalExtrasAmount:  amt("2.00"),
			StartingReceived:   amt("22.00"),
			NetAdjustments:     amt("-2.00"),
			ReconciledTotal:    amt("20.00"),
		},
		Players: []rooms.PlayerRecord{
			{PlayerID: "p1", Name: "Alice", EntryPaid: amt("10.00"), PaymentMethod: "card", ExtrasCount: 1, ExtrasAmount: amt("2.00")},
			{PlayerID: "p2", Name: "Bob", EntryPaid: amt("10.00"), PaymentMethod: "cash"},
		},
		Leaderboard: []rooms.LeaderboardEntry{
			{Rank: 1, PlayerID: "p1", Name: "Alice", Score: 42},
			{Rank: 2, PlayerID: "p2", Name: "Bob", Score: 17},
		},
		GeneratedAt: testGeneratedAt,
	}
}

func TestBuildProducesAllArtifacts(t *testing.T) {
	artifacts, err := NewBuilder().Build(testSnapshot(t))
	require.NoError(t, err)

	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Name)
		require.NotEmpty(t, a.Data, "artifact %s is empty", a.Name)
	}
	require.Equal(t, []string{
		ArtifactSummary, ArtifactPlayers, ArtifactPrizes,
		ArtifactAdjustments, ArtifactStandings, ArtifactReport, ArtifactSnapshot,
	}, names)
}

func TestBuildIsDeterministic(t *testing.T) {
	builder := NewBuilder()
	snap := testSnapshot(t)
	first, err := builder.Build(snap)
	require.NoError(t, err)
	second, err := builder.Build(snap)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Data, second[i].Data, "artifact %s differs between runs", first[i].Name)
	}
}

func TestBuildRefusesUnapprovedFinal(t *testing.T) {
	snap := testSnapshot(t)
	snap.Record.ApprovedBy = ""
	snap.Record.ApprovedAt = nil

	_, err := NewBuilder().Build(snap)
	require.ErrorIs(t, err, ErrNotApproved)

	snap.Draft = true
	artifacts, err := NewBuilder().Build(snap)
	require.NoError(t, err)
	require.Contains(t, string(artifacts[5].Data), "DRAFT")
}

func TestBuildAbortsOnRenderFailure(t *testing.T) {
	snap := testSnapshot(t)
	snap.Players[1].PlayerID = ""

	_, err := NewBuilder().Build(snap)
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	require.Equal(t, ArtifactPlayers, renderErr.Artifact)
}

func TestPlayersArtifactColumns(t *testing.T) {
	artifacts, err := NewBuilder().Build(testSnapshot(t))
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(artifacts[1].Data))).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{
		"playerId", "name", "disqualified", "entryPaidAmount", "paymentMethod",
		"extrasCount", "extrasAmount", "totalPaid",
	}, rows[0])
	require.Len(t, rows, 3)
	require.Equal(t, "12.00", rows[1][7])
}

func TestPrizeRegisterIncludesHistorySummary(t *testing.T) {
	artifacts, err := NewBuilder().Build(testSnapshot(t))
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(artifacts[2].Data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	summary := rows[1][13]
	require.Contains(t, summary, "declared@")
	require.Contains(t, summary, "delivered@")
	require.Contains(t, summary, "by host")
}
