package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/askcraft/askcraft-web/internal/articles"
	"github.com/askcraft/askcraft-web/internal/media"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/view"
)

const (
	landingArticles = 6
	landingMedia    = 8
)

// ArticleLister lists articles for the landing page.
type ArticleLister interface {
	List(ctx context.Context, includeDrafts bool, page, perPage int) (articles.Page, error)
}

// MediaLister lists media for the landing page.
type MediaLister interface {
	List(ctx context.Context, typ string, limit int, cursor string) (media.Page, error)
}

// Pages renders the HTML pages.
type Pages struct {
	Logger    *slog.Logger
	Templates *view.Engine
	Articles  ArticleLister
	Media     MediaLister
}

type landingData struct {
	Articles []articles.Article
	Media    []media.Item
}

func (p Pages) landing(w http.ResponseWriter, r *http.Request) {
	var data landingData
	g, ctx := errgroup.WithContext(r.Context())
	if p.Articles != nil {
		g.Go(func() error {
			page, err := p.Articles.List(ctx, false, 1, landingArticles)
			data.Articles = page.Items
			return err
		})
	}
	if p.Media != nil {
		g.Go(func() error {
			page, err := p.Media.List(ctx, "", landingMedia, "")
			data.Media = page.Items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		p.Logger.Warn("landing content", slog.Any("error", err))
	}
	p.render(w, r, http.StatusOK, "pages/landing.html", "", data)
}

func (p Pages) login(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "pages/login.html", "Sign in", map[string]string{
		"Next": safeNext(r.URL.Query().Get("next")),
	})
}

func (p Pages) forbidden(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusForbidden, "pages/forbidden.html", "Forbidden", nil)
}

// admin renders the dashboard shell. The edge gate has already checked the
// token claim; the role is re-read from the store here.
func (p Pages) admin(w http.ResponseWriter, r *http.Request) {
	principal, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		q := url.Values{"next": {r.URL.RequestURI()}}
		http.Redirect(w, r, "/login?"+q.Encode(), http.StatusTemporaryRedirect)
		return
	}
	if !principal.IsStaff() {
		http.Redirect(w, r, "/403", http.StatusTemporaryRedirect)
		return
	}
	p.render(w, r, http.StatusOK, "pages/admin.html", "Dashboard", nil)
}

func (p Pages) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := view.TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if principal, ok := rbac.PrincipalFromContext(r.Context()); ok {
		td.User = &principal
	}
	if err := p.Templates.Render(w, status, name, td); err != nil {
		p.Logger.Error("render page", slog.String("template", name), slog.Any("error", err))
	}
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/admin"
	}
	return next
}
