package archive

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostdesk/hostdesk/internal/money"
	"github.com/hostdesk/hostdesk/internal/recon"
)

// Builder renders the fixed artifact set from a snapshot.
type Builder struct{}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders every artifact in bundle order. Each artifact is produced
// from the same snapshot; any failure aborts the whole set.
func (b *Builder) Build(snap Snapshot) ([]Artifact, error) {
	if strings.TrimSpace(snap.Room.ID) == "" {
		return nil, &RenderError{Artifact: ArtifactSummary, Err: errors.New("room id missing from snapshot")}
	}
	if !snap.Record.Approved() && !snap.Draft {
		return nil, ErrNotApproved
	}

	type renderStep struct {
		name        string
		contentType string
		render      func(Snapshot) ([]byte, error)
	}
	steps := []renderStep{
		{ArtifactSummary, "text/csv", renderSummary},
		{ArtifactPlayers, "text/csv", renderPlayers},
		{ArtifactPrizes, "text/csv", renderPrizeRegister},
		{ArtifactAdjustments, "text/csv", renderAdjustments},
		{ArtifactStandings, "text/csv", renderStandings},
		{ArtifactReport, "text/plain", renderReport},
		{ArtifactSnapshot, "application/json", renderSnapshot},
	}

	artifacts := make([]Artifact, 0, len(steps))
	for _, step := range steps {
		data, err := step.render(snap)
		if err != nil {
			return nil, &RenderError{Artifact: step.name, Err: err}
		}
		artifacts = append(artifacts, Artifact{Name: step.name, ContentType: step.contentType, Data: data})
	}
	return artifacts, nil
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderSummary(snap Snapshot) ([]byte, error) {
	mode := "FINAL"
	if !snap.Record.Approved() {
		mode = "DRAFT"
	}
	approvedBy := snap.Record.ApprovedBy
	approvedAt := ""
	if snap.Record.ApprovedAt != nil {
		approvedAt = snap.Record.ApprovedAt.UTC().Format(time.RFC3339)
	}
	t := snap.Totals
	rows := [][]string{
		{"Metric", "Value"},
		{"Room", snap.Room.Name},
		{"Room ID", snap.Room.ID},
		{"Mode", mode},
		{"Generated At", snap.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Approved By", approvedBy},
		{"Approved At", approvedAt},
		{"Currency", snap.Room.Currency},
		{"Entry Fee", money.Format(t.EntryFee)},
		{"Entries Confirmed", strconv.Itoa(t.EntryCount)},
		{"Total Entry Received", money.Format(t.TotalEntryReceived)},
		{"Total Extras", money.Format(t.TotalExtrasAmount)},
		{"Starting Received", money.Format(t.StartingReceived)},
		{"Adjustments In", money.Format(t.AdjustmentsIn)},
		{"Adjustments Out", money.Format(t.AdjustmentsOut)},
		{"Net Adjustments", money.Format(t.NetAdjustments)},
		{"Reconciled Total", money.Format(t.ReconciledTotal)},
	}
	for _, m := range t.Methods {
		share := "n/a"
		if m.Share != nil {
			share = m.Share.Mul(hundred).StringFixed(1) + "%"
		}
		rows = append(rows, []string{"Method " + m.Method, money.Format(m.Total) + " (" + share + ")"})
	}
	return writeCSV(rows)
}

var hundred = decimal.NewFromInt(100)

func renderPlayers(snap Snapshot) ([]byte, error) {
	rows := [][]string{
		{"playerId", "name", "disqualified", "entryPaidAmount", "paymentMethod", "extrasCount", "extrasAmount", "totalPaid"},
	}
	for _, p := range snap.Players {
		if strings.TrimSpace(p.PlayerID) == "" {
			return nil, fmt.Errorf("player %q has no id", p.Name)
		}
		rows = append(rows, []string{
			p.PlayerID,
			p.Name,
			strconv.FormatBool(p.Disqualified),
			money.Format(p.EntryPaid),
			p.PaymentMethod,
			strconv.Itoa(p.ExtrasCount),
			money.Format(p.ExtrasAmount),
			money.Format(p.TotalPaid()),
		})
	}
	return writeCSV(rows)
}

func renderPrizeRegister(snap Snapshot) ([]byte, error) {
	awards := make([]recon.PrizeAward, len(snap.Record.PrizeAwards))
	copy(awards, snap.Record.PrizeAwards)
	recon.SortAwards(awards)

	rows := [][]string{{
		"prizeAwardId", "place", "prizeName", "prizeValue", "currency", "sponsor",
		"winnerPlayerId", "winnerName", "status", "method", "reference",
		"declaredAt", "deliveredAt", "statusHistorySummary", "notes",
	}}
	for _, a := range awards {
		if strings.TrimSpace(a.PrizeName) == "" {
			return nil, fmt.Errorf("award %s has no prize name", a.ID)
		}
		place := ""
		if a.Place != nil {
			place = strconv.Itoa(*a.Place)
		}
		deliveredAt := ""
		if a.DeliveredAt != nil {
			deliveredAt = a.DeliveredAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			a.ID.String(),
			place,
			a.PrizeName,
			money.Format(a.DeclaredValue),
			snap.Room.Currency,
			a.Sponsor,
			a.WinnerPlayerID,
			a.WinnerName,
			string(a.Status),
			string(a.AwardMethod),
			a.AwardReference,
			a.DeclaredAt.UTC().Format(time.RFC3339),
			deliveredAt,
			historySummary(a.StatusHistory),
			a.AwardNotes,
		})
	}
	return writeCSV(rows)
}

func historySummary(history []recon.StatusChange) string {
	parts := make([]string, 0, len(history))
	for _, change := range history {
		part := string(change.Status) + "@" + change.At.UTC().Format(time.RFC3339)
		if change.By != "" {
			part += " by " + change.By
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " > ")
}

func renderAdjustments(snap Snapshot) ([]byte, error) {
	rows := [][]string{
		{"id", "at", "type", "reasonCode", "amount", "note", "createdBy"},
	}
	for _, adj := range snap.Record.Ledger {
		rows = append(rows, []string{
			adj.ID.String(),
			adj.At.UTC().Format(time.RFC3339),
			string(adj.Type),
			string(adj.ReasonCode),
			money.Format(adj.Amount),
			adj.Note,
			adj.CreatedBy,
		})
	}
	return writeCSV(rows)
}

func renderStandings(snap Snapshot) ([]byte, error) {
	rows := [][]string{{"rank", "playerId", "name", "score"}}
	for _, entry := range snap.Leaderboard {
		if strings.TrimSpace(entry.PlayerID) == "" {
			return nil, fmt.Errorf("leaderboard rank %d has no player id", entry.Rank)
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Rank),
			entry.PlayerID,
			entry.Name,
			strconv.Itoa(entry.Score),
		})
	}
	return writeCSV(rows)
}

func renderReport(snap Snapshot) ([]byte, error) {
	var sb strings.Builder
	symbol := snap.Room.Currency
	t := snap.Totals

	title := "RECONCILIATION REPORT"
	if !snap.Record.Approved() {
		title = "RECONCILIATION REPORT (DRAFT)"
	}
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n\n")
	fmt.Fprintf(&sb, "Room:          %s (%s)\n", snap.Room.Name, snap.Room.ID)
	fmt.Fprintf(&sb, "Generated:     %s\n", snap.GeneratedAt.UTC().Format(time.RFC3339))
	if snap.Record.Approved() {
		fmt.Fprintf(&sb, "Approved by:   %s at %s\n", snap.Record.ApprovedBy, snap.Record.ApprovedAt.UTC().Format(time.RFC3339))
	} else {
		sb.WriteString("Approved by:   PENDING APPROVAL\n")
	}
	sb.WriteString("\nMONEY\n-----\n")
	fmt.Fprintf(&sb, "Entry payments (%d confirmed): %s\n", t.EntryCount, money.FormatWithSymbol(symbol, t.TotalEntryReceived))
	fmt.Fprintf(&sb, "Extra purchases:               %s\n", money.FormatWithSymbol(symbol, t.TotalExtrasAmount))
	fmt.Fprintf(&sb, "Starting received:             %s\n", money.FormatWithSymbol(symbol, t.StartingReceived))
	fmt.Fprintf(&sb, "Net adjustments:               %s\n", money.FormatWithSymbol(symbol, t.NetAdjustments))
	fmt.Fprintf(&sb, "Reconciled total:              %s\n", money.FormatWithSymbol(symbol, t.ReconciledTotal))

	sb.WriteString("\nPRIZES\n------\n")
	awards := make([]recon.PrizeAward, len(snap.Record.PrizeAwards))
	copy(awards, snap.Record.PrizeAwards)
	recon.SortAwards(awards)
	if len(awards) == 0 {
		sb.WriteString("No prizes declared.\n")
	}
	for _, a := range awards {
		place := "-"
		if a.Place != nil {
			place = strconv.Itoa(*a.Place)
		}
		fmt.Fprintf(&sb, "#%s %s (%s): %s, winner %s\n",
			place, a.PrizeName, money.FormatWithSymbol(symbol, a.DeclaredValue), a.Status, a.WinnerName)
	}

	if snap.Record.Notes != "" {
		sb.WriteString("\nNOTES\n-----\n")
		sb.WriteString(snap.Record.Notes + "\n")
	}
	return []byte(sb.String()), nil
}

func renderSnapshot(snap Snapshot) ([]byte, error) {
	payload := struct {
		Room        string       `json:"roomId"`
		GeneratedAt time.Time    `json:"generatedAt"`
		Draft       bool         `json:"draft"`
		Record      recon.Record `json:"record"`
		Totals      recon.Totals `json:"totals"`
	}{
		Room:        snap.Room.ID,
		GeneratedAt: snap.GeneratedAt.UTC(),
		Draft:       !snap.Record.Approved(),
		Record:      snap.Record,
		Totals:      snap.Totals,
	}
	return json.MarshalIndent(payload, "", "  ")
}
