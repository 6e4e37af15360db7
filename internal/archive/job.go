package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hostdesk/hostdesk/jobs"
)

// BuildMetrics counts archive build outcomes.
type BuildMetrics interface {
	IncArchiveBuilt()
	IncArchiveFailed()
}

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Service    *Service
	Builder    *Builder
	Bundler    *Bundler
	StorageDir string
	Logger     *slog.Logger
	Metrics    BuildMetrics
}

// Job processes archive build requests coming from the queue.
type Job struct {
	service    *Service
	builder    *Builder
	bundler    *Bundler
	storageDir string
	logger     *slog.Logger
	metrics    BuildMetrics
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	return &Job{
		service:    cfg.Service,
		builder:    cfg.Builder,
		bundler:    cfg.Bundler,
		storageDir: cfg.StorageDir,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.service == nil || j.builder == nil || j.bundler == nil {
		return fmt.Errorf("archive job not configured")
	}
	var payload jobs.ArchiveBuildPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RequestID == "" {
		return asynq.SkipRetry
	}
	id, err := payload.Parse()
	if err != nil {
		return asynq.SkipRetry
	}
	req, err := j.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return asynq.SkipRetry
		}
		return err
	}
	if req.Status == StatusReady {
		return nil
	}
	if err := j.service.MarkInProgress(ctx, req.ID); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			current, loadErr := j.service.Get(ctx, req.ID)
			if loadErr == nil && (current.Status == StatusInProgress || current.Status == StatusReady) {
				return nil
			}
		}
		return err
	}
	snap, err := j.service.Snapshot(ctx, req.RoomID, req.Draft)
	if err != nil {
		return j.fail(ctx, req.ID, err)
	}
	bundle, err := j.bundler.Bundle(j.builder, snap)
	if err != nil {
		failErr := j.fail(ctx, req.ID, err)
		// Render and approval failures are deterministic; retrying the
		// task cannot fix them.
		var renderErr *RenderError
		if errors.As(err, &renderErr) || errors.Is(err, ErrNotApproved) {
			return asynq.SkipRetry
		}
		return failErr
	}
	filePath, digestPath, err := j.save(req.RoomID, bundle)
	if err != nil {
		return j.fail(ctx, req.ID, err)
	}
	if _, err := j.service.MarkReady(ctx, req, filePath, digestPath, bundle.Digest, int64(len(bundle.Container))); err != nil {
		return err
	}
	if j.metrics != nil {
		j.metrics.IncArchiveBuilt()
	}
	if j.logger != nil {
		j.logger.Info("archive bundle ready",
			slog.String("request_id", req.ID.String()),
			slog.String("room_id", req.RoomID),
			slog.String("file", filePath),
			slog.Bool("draft", req.Draft))
	}
	return nil
}

func (j *Job) fail(ctx context.Context, id uuid.UUID, cause error) error {
	_ = j.service.MarkFailed(ctx, id, cause.Error())
	if j.metrics != nil {
		j.metrics.IncArchiveFailed()
	}
	return cause
}

func (j *Job) save(roomID string, bundle *Bundle) (string, string, error) {
	dir := j.storageDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "hostdesk-archives")
	}
	dir = filepath.Join(dir, roomID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	filePath := filepath.Join(dir, bundle.Name)
	if err := os.WriteFile(filePath, bundle.Container, 0o644); err != nil {
		return "", "", err
	}
	digestPath := filepath.Join(dir, bundle.DigestName())
	digestLine := fmt.Sprintf("%s  %s\n", bundle.Digest, bundle.Name)
	if err := os.WriteFile(digestPath, []byte(digestLine), 0o644); err != nil {
		return "", "", err
	}
	return filePath, digestPath, nil
}
