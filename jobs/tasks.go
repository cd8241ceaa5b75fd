package jobs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMediaPurgeBlob removes the stored object behind a deleted media item.
	TaskMediaPurgeBlob = "media:purge-blob"
	// TaskAuditPrune drops audit entries past the retention window.
	TaskAuditPrune = "audit:prune"
)

// PurgeBlobPayload names the object to delete.
type PurgeBlobPayload struct {
	Key string `json:"key"`
}

// NewPurgeBlobTask constructs an Asynq task for blob removal.
func NewPurgeBlobTask(key string) (*asynq.Task, error) {
	if key == "" {
		return nil, errors.New("jobs: purge blob key required")
	}
	body, err := json.Marshal(PurgeBlobPayload{Key: key})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode purge payload: %w", err)
	}
	return asynq.NewTask(TaskMediaPurgeBlob, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// AuditPrunePayload carries the retention window in days.
type AuditPrunePayload struct {
	KeepDays int `json:"keep_days"`
}

// NewAuditPruneTask constructs the periodic audit pruning task.
func NewAuditPruneTask(keepDays int) (*asynq.Task, error) {
	if keepDays <= 0 {
		return nil, errors.New("jobs: audit retention must be positive")
	}
	body, err := json.Marshal(AuditPrunePayload{KeepDays: keepDays})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode audit prune payload: %w", err)
	}
	return asynq.NewTask(TaskAuditPrune, body, asynq.Queue(QueueDefault)), nil
}
