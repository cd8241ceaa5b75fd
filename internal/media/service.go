package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

const auditEntity = "media"

// DefaultMaxUpload bounds uploaded file size when no limit is configured.
const DefaultMaxUpload = 50 << 20

// BlobStore stores uploaded files and reports which URLs it owns.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) (string, error)
	KeyFor(url string) (string, bool)
}

// PurgeQueue schedules removal of a stored blob.
type PurgeQueue interface {
	EnqueuePurge(ctx context.Context, key string) error
}

var uploadTypes = map[string]struct {
	kind Type
	ext  string
}{
	"image/jpeg": {TypeImage, ".jpg"},
	"image/png":  {TypeImage, ".png"},
	"image/gif":  {TypeImage, ".gif"},
	"image/webp": {TypeImage, ".webp"},
	"video/mp4":  {TypeVideo, ".mp4"},
	"video/webm": {TypeVideo, ".webm"},
}

var mismatchMessage = map[Type]string{
	TypeImage: "is not an image",
	TypeVideo: "is not a video",
}

// Service handles media business rules.
type Service struct {
	repo      Repository
	blobs     BlobStore
	purge     PurgeQueue
	owned     rbac.OwnershipRule
	audit     shared.AuditRecorder
	logger    *slog.Logger
	maxUpload int64
	now       func() time.Time
}

// Options carries optional collaborators of Service.
type Options struct {
	Blobs     BlobStore
	Purge     PurgeQueue
	Audit     shared.AuditRecorder
	MaxUpload int64
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger, opts Options) *Service {
	if opts.Audit == nil {
		opts.Audit = shared.NopAudit{}
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		blobs:     opts.Blobs,
		purge:     opts.Purge,
		owned:     rbac.OwnershipRule{Kind: auditEntity, Owner: repo.UploaderOf},
		audit:     opts.Audit,
		logger:    logger,
		maxUpload: opts.MaxUpload,
		now:       time.Now,
	}
}

// MaxUpload exposes the upload size limit in bytes.
func (s *Service) MaxUpload() int64 { return s.maxUpload }

// List returns one page of media, newest first. limit is clamped to
// [1, MaxLimit]; callers pass DefaultLimit when the client gave none.
func (s *Service) List(ctx context.Context, typ string, limit int, cursor string) (Page, error) {
	q := ListQuery{Limit: clampLimit(limit), Cursor: cursor}
	if t := Type(typ); t.Valid() {
		q.Type = t
	}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return Page{}, httpx.NewValidationError("cursor", "is invalid")
		}
	}
	want := q.Limit
	q.Limit = want + 1
	items, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	page := Page{Items: items}
	if len(items) > want {
		page.Items = items[:want]
		next := page.Items[want-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Get returns a media item by id.
func (s *Service) Get(ctx context.Context, id string) (*Item, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a media URL uploaded by actor.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, req CreateMediaRequest) (*Item, error) {
	t := Type(req.Type)
	if !t.Valid() {
		return nil, httpx.NewValidationError("type", "must be one of image video")
	}
	if extensionMismatch(t, req.URL) {
		return nil, httpx.NewValidationError("url", mismatchMessage[t])
	}
	it, err := s.repo.Create(ctx, NewItem{
		Type:       t,
		URL:        strings.TrimSpace(req.URL),
		Caption:    strings.TrimSpace(req.Caption),
		UploaderID: actor.AccountID,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, shared.AuditCreate, it.ID, map[string]any{"url": it.URL})
	return it, nil
}

// UpdateCaption changes the caption of an item owned by actor (ADMIN may
// change any). A nil caption leaves the item untouched.
func (s *Service) UpdateCaption(ctx context.Context, actor rbac.Principal, id string, req UpdateMediaRequest) (*Item, error) {
	if err := s.owned.Check(ctx, actor, id); err != nil {
		return nil, err
	}
	if req.Caption == nil {
		return s.repo.Get(ctx, id)
	}
	it, err := s.repo.UpdateCaption(ctx, id, strings.TrimSpace(*req.Caption))
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, shared.AuditUpdate, it.ID, nil)
	return it, nil
}

// Delete removes an item under the same ownership rule as UpdateCaption and
// schedules removal of its blob when the URL points at our bucket.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	if err := s.owned.Check(ctx, actor, id); err != nil {
		return err
	}
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, shared.AuditDelete, id, map[string]any{"url": it.URL})
	s.schedulePurge(ctx, it.URL)
	return nil
}

func (s *Service) schedulePurge(ctx context.Context, url string) {
	if s.blobs == nil || s.purge == nil {
		return
	}
	key, ok := s.blobs.KeyFor(url)
	if !ok {
		return
	}
	if err := s.purge.EnqueuePurge(ctx, key); err != nil {
		s.logger.Warn("enqueue blob purge", slog.String("key", key), slog.Any("error", err))
	}
}

// Upload stores body in the blob store and returns its public URL. The
// content type is sniffed from the payload, not trusted from the client.
// body is rewound after sniffing and handed to the store as is.
func (s *Service) Upload(ctx context.Context, actor rbac.Principal, body io.ReadSeeker, size int64) (*UploadResult, error) {
	if s.blobs == nil {
		return nil, errors.New("media: blob store not configured")
	}
	if size <= 0 {
		return nil, httpx.NewValidationError("file", "is required")
	}
	if size > s.maxUpload {
		return nil, httpx.NewValidationError("file", fmt.Sprintf("must be at most %d bytes", s.maxUpload))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("media: read upload: %w", err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	kind, ok := uploadTypes[contentType]
	if !ok {
		return nil, httpx.NewValidationError("file", "unsupported file type "+contentType)
	}

	key := fmt.Sprintf("media/%s/%s%s", s.now().UTC().Format("2006/01/02"), uuid.NewString(), kind.ext)
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("media: rewind upload: %w", err)
	}
	url, err := s.blobs.Put(ctx, key, contentType, body, size)
	if err != nil {
		return nil, fmt.Errorf("media: store upload: %w", err)
	}
	s.logger.Info("media uploaded", slog.String("key", key), slog.String("actor", actor.AccountID), slog.Int64("size", size))
	return &UploadResult{URL: url, Type: kind.kind, ContentType: contentType, Size: size}, nil
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
		s.logger.Warn("audit media change", slog.String("action", action), slog.String("id", id), slog.Any("error", err))
	}
}
