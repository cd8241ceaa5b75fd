package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/askcraft/askcraft-web/internal/jobs"
)

// AuditPruner removes audit entries older than a cutoff.
type AuditPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPruneJob enforces the audit log retention window.
type AuditPruneJob struct {
	Store   AuditPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Now     func() time.Time
}

// NewAuditPruneJob wires dependencies for the prune handler.
func NewAuditPruneJob(store AuditPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPruneJob {
	return &AuditPruneJob{Store: store, Logger: logger, Metrics: metrics, Now: time.Now}
}

// Handle processes TaskAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("audit prune: handler not configured")
	}
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.KeepDays <= 0 {
		return fmt.Errorf("audit prune: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskAuditPrune)
	defer func() {
		err = tracker.End(err)
	}()

	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	cutoff := now().UTC().AddDate(0, 0, -payload.KeepDays)
	removed, err := j.Store.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("audit prune: %w", err)
	}
	if j.Logger != nil {
		j.Logger.Info("audit log pruned", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	}
	return nil
}
