package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// Recorder receives auth outcome counters.
type Recorder interface {
	LoginAttempt(result string)
	GateDecision(decision string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	cookies    CookieConfig
	authorizer *rbac.Authorizer
	validator  *httpx.Validator
	metrics    Recorder
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, cookies CookieConfig, authorizer *rbac.Authorizer, metrics Recorder) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		cookies:    cookies,
		authorizer: authorizer,
		validator:  httpx.NewValidator(),
		metrics:    metrics,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.LimitByIP(20, time.Minute)).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User SessionUser `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.validator.Bind(r, &req); err != nil {
		h.record("invalid")
		httpx.RespondError(w, h.logger, err)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			h.record("rejected")
		case errors.Is(err, shared.ErrTooManyAttempts):
			h.record("throttled")
		default:
			h.record("error")
		}
		httpx.RespondError(w, h.logger, err)
		return
	}

	h.record("success")
	h.cookies.Set(w, sess.Token)
	httpx.JSON(w, http.StatusOK, loginResponse{User: sess.User})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.authorizer.Authenticate(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{User: SessionUser{
		ID:    p.AccountID,
		Role:  p.Role,
		Email: p.Email,
		Name:  p.Name,
	}})
}

func (h *Handler) record(result string) {
	if h.metrics != nil {
		h.metrics.LoginAttempt(result)
	}
}
