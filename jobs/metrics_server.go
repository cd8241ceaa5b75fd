package jobs

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// NewMetricsServer exposes the worker's metrics handler on addr so the job
// collectors can be scraped. The worker serves nothing else over HTTP.
func NewMetricsServer(addr string, metrics http.Handler) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
