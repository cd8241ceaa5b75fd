package members

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

const auditEntity = "account"

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Service handles member administration rules.
type Service struct {
	repo     Repository
	audit    shared.AuditRecorder
	logger   *slog.Logger
	hashCost int
}

// NewService builds Service instance. audit may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost used for new passwords.
func (s *Service) WithHashCost(cost int) *Service {
	s.hashCost = cost
	return s
}

// List returns all members, newest first.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	return s.repo.List(ctx)
}

// Get returns a member by id.
func (s *Service) Get(ctx context.Context, id string) (*Member, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account. Role defaults to EDITOR.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, req CreateMemberRequest) (*Member, error) {
	role := rbac.RoleEditor
	if req.Role != "" {
		parsed, ok := rbac.ParseRole(req.Role)
		if !ok {
			return nil, fmt.Errorf("members: role %q: %w", req.Role, shared.ErrValidation)
		}
		role = parsed
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.Create(ctx, NewMember{
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, shared.AuditCreate, m.ID, map[string]any{"email": m.Email, "role": m.Role})
	return m, nil
}

// Update applies a partial change. A new password is re-hashed.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, id string, req UpdateMemberRequest) (*Member, error) {
	var c Changes
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		c.Name = &name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		c.Email = &email
	}
	if req.Role != nil {
		role, ok := rbac.ParseRole(*req.Role)
		if !ok {
			return nil, fmt.Errorf("members: role %q: %w", *req.Role, shared.ErrValidation)
		}
		c.Role = &role
	}
	if req.Password != nil {
		hash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		c.PasswordHash = &hash
	}

	m, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return nil, err
	}
	if !c.Empty() {
		meta := map[string]any{"password_changed": c.PasswordHash != nil}
		if c.Role != nil {
			meta["role"] = *c.Role
		}
		s.record(ctx, actor, shared.AuditUpdate, m.ID, meta)
	}
	return m, nil
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, id string) error {
	if id == actor.AccountID {
		return fmt.Errorf("members: cannot delete own account: %w", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, shared.AuditDelete, id, nil)
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", httpx.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("members: hash password: %w", err)
	}
	return string(hash), nil
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
		s.logger.Warn("audit member change", slog.String("action", action), slog.String("id", id), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
