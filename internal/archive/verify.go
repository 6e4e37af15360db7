package archive

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
)

// Verifier re-hashes stored bundles against their recorded digests. A
// mismatch means the file was altered or corrupted after export; it is
// reported, never repaired.
type Verifier struct {
	repo   *Repository
	hasher Hasher
	logger *slog.Logger
	limit  int
}

// NewVerifier constructs a Verifier for the periodic sweep.
func NewVerifier(repo *Repository, hasher Hasher, logger *slog.Logger) *Verifier {
	return &Verifier{repo: repo, hasher: hasher, logger: logger, limit: 100}
}

// Handle fulfils the asynq.HandlerFunc contract for the cron sweep.
func (v *Verifier) Handle(ctx context.Context, _ *asynq.Task) error {
	if v == nil || v.repo == nil {
		return nil
	}
	if v.hasher == nil {
		return ErrIntegrityUnavailable
	}
	requests, err := v.repo.ListReady(ctx, v.limit)
	if err != nil {
		return err
	}
	var mismatches int
	for _, req := range requests {
		if req.FilePath == "" || req.Digest == "" {
			continue
		}
		data, err := os.ReadFile(req.FilePath)
		if err != nil {
			if v.logger != nil {
				v.logger.Warn("archive sweep: bundle unreadable",
					slog.String("request_id", req.ID.String()),
					slog.String("file", req.FilePath),
					slog.Any("error", err))
			}
			mismatches++
			continue
		}
		if got := v.hasher.SumHex(data); got != req.Digest {
			if v.logger != nil {
				v.logger.Error("archive sweep: digest mismatch",
					slog.String("request_id", req.ID.String()),
					slog.String("room_id", req.RoomID),
					slog.String("file", req.FilePath),
					slog.String("want", req.Digest),
					slog.String("got", got))
			}
			mismatches++
		}
	}
	if v.logger != nil {
		v.logger.Info("archive sweep complete",
			slog.Int("checked", len(requests)),
			slog.Int("mismatches", mismatches))
	}
	return nil
}
