package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/askcraft/askcraft-web/internal/rbac"
)

// Gate decisions, also used as metric labels.
const (
	GatePublic    = "public"
	GateLogin     = "login"
	GateForbidden = "forbidden"
	GateAllow     = "allow"
)

// ClaimsVerifier verifies a raw session token.
type ClaimsVerifier interface {
	Verify(token string) (Claims, error)
}

// GateConfig configures the edge gate.
type GateConfig struct {
	// Prefix is the protected path; it matches itself and everything below it.
	Prefix        string
	LoginPath     string
	ForbiddenPath string
	Allowed       []rbac.Role
	Tokens        ClaimsVerifier
	Extract       rbac.TokenExtractor
	Logger        *slog.Logger
	Metrics       Recorder
}

// Gate redirects page requests under Prefix that lack a valid session to the
// login page (carrying the original path in `next`), and sessions whose
// token role is not in Allowed to the forbidden page. It trusts the role
// claim; handlers re-check against the store.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	if cfg.Prefix == "" {
		cfg.Prefix = "/admin"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.ForbiddenPath == "" {
		cfg.ForbiddenPath = "/403"
	}
	if len(cfg.Allowed) == 0 {
		cfg.Allowed = rbac.StaffRoles()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := cfg.decide(r)
			if cfg.Metrics != nil {
				cfg.Metrics.GateDecision(decision)
			}
			switch decision {
			case GateLogin:
				http.Redirect(w, r, cfg.loginURL(r), http.StatusTemporaryRedirect)
			case GateForbidden:
				http.Redirect(w, r, cfg.ForbiddenPath, http.StatusTemporaryRedirect)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (cfg GateConfig) decide(r *http.Request) string {
	if !cfg.protects(r.URL.Path) {
		return GatePublic
	}
	token := cfg.Extract(r)
	if token == "" {
		return GateLogin
	}
	claims, err := cfg.Tokens.Verify(token)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Debug("gate rejected token", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		return GateLogin
	}
	if !claims.Role.In(cfg.Allowed...) {
		return GateForbidden
	}
	return GateAllow
}

func (cfg GateConfig) protects(path string) bool {
	return path == cfg.Prefix || strings.HasPrefix(path, cfg.Prefix+"/")
}

func (cfg GateConfig) loginURL(r *http.Request) string {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return cfg.LoginPath + "?" + url.Values{"next": {target}}.Encode()
}
