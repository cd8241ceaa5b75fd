package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/askcraft/askcraft-web/internal/jobs"
)

// BlobDeleter removes stored objects by key.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// PurgeBlobJob deletes blobs of media items that no longer exist.
type PurgeBlobJob struct {
	Blobs   BlobDeleter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPurgeBlobJob wires dependencies for the purge handler.
func NewPurgeBlobJob(blobs BlobDeleter, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurgeBlobJob {
	return &PurgeBlobJob{Blobs: blobs, Logger: logger, Metrics: metrics}
}

// Handle processes TaskMediaPurgeBlob tasks.
func (j *PurgeBlobJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Blobs == nil {
		return errors.New("purge blob: handler not configured")
	}
	var payload PurgeBlobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Key == "" {
		return fmt.Errorf("purge blob: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskMediaPurgeBlob)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("key", payload.Key))
	if err := j.Blobs.Delete(ctx, payload.Key); err != nil {
		logger.Warn("purge blob failed", slog.Any("error", err))
		return err
	}
	logger.Info("blob purged")
	return nil
}

func (j *PurgeBlobJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
