package media

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
)

const multipartMemory = 8 << 20

// Handler exposes the media API.
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

// MountRoutes registers media routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.StaffRoles()...))
		r.Post("/", h.create)
		r.Post("/upload", h.upload)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, httpx.NewValidationError("limit", "must be a number"))
			return
		}
		limit = parsed
	}
	page, err := h.service.List(r.Context(), q.Get("type"), limit, q.Get("cursor"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateMediaRequest
	if err := h.validator.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	it, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, it)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxUpload()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, h.logger, httpx.NewValidationError("file", "is too large"))
			return
		}
		httpx.RespondError(w, h.logger, httpx.NewValidationError("file", "is required"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, h.logger, httpx.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	p, _ := rbac.PrincipalFromContext(r.Context())
	res, err := h.service.Upload(r.Context(), p, file, header.Size)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateMediaRequest
	if err := h.validator.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	it, err := h.service.UpdateCaption(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
