package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/askcraft/askcraft-web/internal/jobs"
	"github.com/askcraft/askcraft-web/internal/observability"
)

type deleterSpy struct {
	keys []string
	err  error
}

func (d *deleterSpy) Delete(_ context.Context, key string) error {
	d.keys = append(d.keys, key)
	return d.err
}

func TestNewPurgeBlobTask(t *testing.T) {
	_, err := NewPurgeBlobTask("")
	assert.Error(t, err)

	task, err := NewPurgeBlobTask("media/a.png")
	require.NoError(t, err)
	assert.Equal(t, TaskMediaPurgeBlob, task.Type())
	var payload PurgeBlobPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "media/a.png", payload.Key)
}

func TestPurgeBlobJobHandle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	blobs := &deleterSpy{}
	job := NewPurgeBlobJob(blobs, nil, metrics)

	task, err := NewPurgeBlobTask("media/a.png")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"media/a.png"}, blobs.keys)

	blobs.err = errors.New("s3 down")
	assert.Error(t, job.Handle(context.Background(), task))

	bad := asynq.NewTask(TaskMediaPurgeBlob, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs(TaskMediaPurgeBlob, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs(TaskMediaPurgeBlob, "failure")))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	get := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := get(NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":3`)

	rec = get(NewHandler(stubInspector{err: errors.New("redis down")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}

type prunerSpy struct {
	cutoff time.Time
	err    error
}

func (p *prunerSpy) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 7, p.err
}

func TestAuditPruneJobHandle(t *testing.T) {
	store := &prunerSpy{}
	job := NewAuditPruneJob(store, nil, nil)
	job.Now = func() time.Time { return time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC) }

	task, err := NewAuditPruneTask(30)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), store.cutoff)

	store.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), task))

	_, err = NewAuditPruneTask(0)
	assert.Error(t, err)

	bad := asynq.NewTask(TaskAuditPrune, []byte(`{"keep_days":0}`))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestMetricsServerExposesJobCollectors(t *testing.T) {
	obs := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(obs.Registerer())
	job := NewPurgeBlobJob(&deleterSpy{err: errors.New("s3 down")}, nil, metrics)
	task, err := NewPurgeBlobTask("media/a.png")
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))

	srv := NewMetricsServer(":0", obs.Handler())

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `askcraft_jobs_failures_total{job="media:purge-blob"} 1`)
	assert.Contains(t, body, `askcraft_jobs_total{job="media:purge-blob",status="failure"} 1`)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
