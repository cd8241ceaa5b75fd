package articles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// Handler exposes the article API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers article routes. Reads are public; writes need a
// staff role and, for EDITOR, ownership.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Optional)
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.StaffRoles()...))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func staff(r *http.Request) bool {
	p, ok := rbac.PrincipalFromContext(r.Context())
	return ok && p.IsStaff()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r.URL.Query())
	result, err := h.service.List(r.Context(), staff(r), page, perPage)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), staff(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if err := h.validator.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	a, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateArticleRequest
	if err := h.validator.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	a, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
