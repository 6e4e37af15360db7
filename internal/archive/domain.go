// Package archive renders the finalized reconciliation record into a fixed
// set of reports, hashes each one, and packages the lot into a verifiable
// bundle for the organizer's compliance record.
package archive

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostdesk/hostdesk/internal/recon"
	"github.com/hostdesk/hostdesk/internal/rooms"
)

// Status captures the state of an archive request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Artifact names, in the fixed bundle order. The manifest is always last.
const (
	ArtifactSummary     = "summary.csv"
	ArtifactPlayers     = "players.csv"
	ArtifactPrizes      = "prize_register.csv"
	ArtifactAdjustments = "adjustments.csv"
	ArtifactStandings   = "standings.csv"
	ArtifactReport      = "report.txt"
	ArtifactSnapshot    = "reconciliation.json"
	ArtifactManifest    = "MANIFEST"
)

// Artifact is one named, rendered report.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ManifestFile describes one artifact inside the manifest.
type ManifestFile struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest lists every artifact with its digest. The manifest never hashes
// itself.
type Manifest struct {
	Algorithm string         `json:"algorithm"`
	CreatedAt time.Time      `json:"createdAt"`
	Files     []ManifestFile `json:"files"`
}

// Bundle is the packaged archive: the container bytes, its detached digest,
// and the manifest for callers that want it without unpacking.
type Bundle struct {
	Name      string
	Container []byte
	Digest    string
	Manifest  Manifest
	Artifacts []Artifact
	Draft     bool
}

// DigestName returns the name of the detached digest file for the bundle.
func (b Bundle) DigestName() string {
	return b.Name + ".sha256"
}

// Snapshot is the single data view every artifact renders from. All reports
// must come from the same snapshot; nothing may be re-fetched mid-build.
type Snapshot struct {
	Room        rooms.Room
	Record      recon.Record
	Totals      recon.Totals
	Players     []rooms.PlayerRecord
	Leaderboard []rooms.LeaderboardEntry
	GeneratedAt time.Time
	Draft       bool
}

// Request is a persisted archive generation request.
type Request struct {
	ID           uuid.UUID
	RoomID       string
	Status       Status
	Draft        bool
	RequestedBy  string
	RequestedAt  time.Time
	CompletedAt  *time.Time
	FilePath     string
	DigestPath   string
	Digest       string
	FileSize     *int64
	ErrorMessage string
}

// RenderError reports that an artifact could not be produced. Any render
// failure aborts the whole export; partial archives are never acceptable.
type RenderError struct {
	Artifact string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("archive: render %s: %v", e.Artifact, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

var (
	// ErrIntegrityUnavailable is returned when no hashing capability is
	// wired. It must surface to the caller; a placeholder digest would
	// defeat the point of the manifest.
	ErrIntegrityUnavailable = errors.New("archive: integrity hashing unavailable")
	// ErrNotApproved is returned when a final (non-draft) export is
	// requested before the approval gate has been passed.
	ErrNotApproved     = errors.New("archive: record not approved; request a draft export instead")
	ErrRequestNotFound = errors.New("archive: request not found")
	ErrBundleNotReady  = errors.New("archive: bundle not ready")
	ErrInvalidStatus   = errors.New("archive: request not in expected status")
)

// NormaliseStatus maps free-form status strings onto the closed set.
func NormaliseStatus(v string) Status {
	switch Status(strings.TrimSpace(strings.ToUpper(v))) {
	case StatusPending, StatusInProgress, StatusReady, StatusFailed:
		return Status(strings.TrimSpace(strings.ToUpper(v)))
	default:
		return StatusPending
	}
}
