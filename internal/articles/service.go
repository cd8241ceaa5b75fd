package articles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

const auditEntity = "article"

// Service handles article business rules.
type Service struct {
	repo   Repository
	owned  rbac.OwnershipRule
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		owned:  rbac.OwnershipRule{Kind: auditEntity, Owner: repo.AuthorOf},
		audit:  audit,
		logger: logger,
	}
}

// Page is one page of an article listing.
type Page struct {
	Items      []Article         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// List returns a page of articles. Drafts are only listed for staff.
func (s *Service) List(ctx context.Context, includeDrafts bool, page, perPage int) (Page, error) {
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, ListFilter{IncludeDrafts: includeDrafts, Limit: p.PerPage, Offset: p.Offset()})
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// Get returns an article by id or slug. Drafts are hidden unless
// includeDrafts is set.
func (s *Service) Get(ctx context.Context, idOrSlug string, includeDrafts bool) (*Article, error) {
	a, err := s.repo.Get(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !a.Published && !includeDrafts {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

// Create stores a new article authored by actor.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, req CreateArticleRequest) (*Article, error) {
	title := strings.TrimSpace(req.Title)
	slug := Slugify(title)
	if slug == "" {
		return nil, fmt.Errorf("articles: title %q has no slug characters: %w", title, shared.ErrValidation)
	}
	a, err := s.repo.Create(ctx, NewArticle{
		Title:     title,
		Slug:      slug,
		Content:   req.Content,
		CoverURL:  req.CoverURL,
		Published: req.Published != nil && *req.Published,
		AuthorID:  actor.AccountID,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, shared.AuditCreate, a.ID, map[string]any{"slug": a.Slug})
	return a, nil
}

// Update applies a partial change. EDITOR callers may only touch their own
// articles. The slug is fixed at creation.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, id string, req UpdateArticleRequest) (*Article, error) {
	if err := s.owned.Check(ctx, actor, id); err != nil {
		return nil, err
	}
	c := Changes{Content: req.Content, CoverURL: req.CoverURL, Published: req.Published}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		c.Title = &title
	}
	a, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, shared.AuditUpdate, a.ID, nil)
	return a, nil
}

// Delete removes an article under the same ownership rule as Update.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	if err := s.owned.Check(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, shared.AuditDelete, id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action, id string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.AccountID,
		Action:   action,
		Entity:   auditEntity,
		EntityID: id,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit article change", slog.String("action", action), slog.String("id", id), slog.Any("error", err))
	}
}
