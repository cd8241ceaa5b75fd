package rbac

import (
	"log/slog"
	"net/http"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
)

// Middleware wires Authorizer checks into chi route groups.
type Middleware struct {
	Authorizer *Authorizer
	Logger     *slog.Logger
}

// Require authenticates the caller and ensures it holds one of roles. The
// resolved Principal is stored in the request context.
func (m Middleware) Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := m.Authorizer.Authenticate(r)
			if err != nil {
				m.debug("rbac authenticate", r, err)
				httpx.RespondError(w, m.Logger, err)
				return
			}
			if len(roles) > 0 {
				if err := RequireRole(p, roles...); err != nil {
					m.debug("rbac require role", r, err)
					httpx.RespondError(w, m.Logger, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// Optional resolves the caller when a valid session is present and otherwise
// continues anonymously.
func (m Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := m.Authorizer.Authenticate(r); err == nil {
			r = r.WithContext(ContextWithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) debug(msg string, r *http.Request, err error) {
	if m.Logger == nil {
		return
	}
	m.Logger.Debug(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
}
