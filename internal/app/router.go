package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/askcraft/askcraft-web/internal/articles"
	"github.com/askcraft/askcraft-web/internal/auth"
	"github.com/askcraft/askcraft-web/internal/media"
	"github.com/askcraft/askcraft-web/internal/members"
	"github.com/askcraft/askcraft-web/internal/observability"
	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/jobs"
	"github.com/askcraft/askcraft-web/web"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Pages           Pages
	Gate            func(http.Handler) http.Handler
	RBACMiddleware  rbac.Middleware
	AuthHandler     *auth.Handler
	MembersHandler  *members.Handler
	ArticlesHandler *articles.Handler
	MediaHandler    *media.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	DB              Pinger
}

// NewRouter constructs the chi.Router with AskCraft defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.DB, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(params.RBACMiddleware.Optional)
		r.Get("/", params.Pages.landing)
		r.Get("/login", params.Pages.login)
		r.Get("/403", params.Pages.forbidden)
	})

	r.Group(func(r chi.Router) {
		if params.Gate != nil {
			r.Use(params.Gate)
		}
		r.Use(params.RBACMiddleware.Optional)
		r.Get("/admin", params.Pages.admin)
		r.Get("/admin/*", params.Pages.admin)
	})

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.MembersHandler != nil {
			r.Route("/members", params.MembersHandler.MountRoutes)
		}
		if params.ArticlesHandler != nil {
			r.Route("/articles", params.ArticlesHandler.MountRoutes)
		}
		if params.MediaHandler != nil {
			r.Route("/media", params.MediaHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.Require(rbac.RoleAdmin))
			params.JobHandler.MountRoutes(r)
		})
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

func healthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warn("health check database", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
