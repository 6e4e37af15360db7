package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeArchiveBuild is the task type for building an archive bundle.
	TaskTypeArchiveBuild = "archive:build"
	// TaskTypeArchiveVerify is the task type for the periodic digest sweep
	// over stored bundles.
	TaskTypeArchiveVerify = "archive:verify"
)

// ArchiveBuildPayload identifies the archive request a worker should build.
type ArchiveBuildPayload struct {
	RequestID string `json:"requestId"`
}

// Parse returns the request id as a UUID.
func (p ArchiveBuildPayload) Parse() (uuid.UUID, error) {
	return uuid.Parse(p.RequestID)
}

// NewArchiveBuildTask constructs an Asynq task for an archive request.
func NewArchiveBuildTask(requestID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(ArchiveBuildPayload{RequestID: requestID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeArchiveBuild, data), nil
}

// NewArchiveVerifyTask constructs the cron task for the integrity sweep.
func NewArchiveVerifyTask() *asynq.Task {
	return asynq.NewTask(TaskTypeArchiveVerify, nil)
}
