package members

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

type memoryRepo struct {
	mu     sync.Mutex
	seq    int
	rows   map[string]Member
	hashes map[string]string
}

func newMemoryRepo(seed ...Member) *memoryRepo {
	repo := &memoryRepo{rows: map[string]Member{}, hashes: map[string]string{}}
	for _, m := range seed {
		repo.rows[m.ID] = m
	}
	return repo
}

func (r *memoryRepo) List(context.Context) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &m, nil
}

func (r *memoryRepo) emailTaken(email, except string) bool {
	for id, m := range r.rows {
		if m.Email == email && id != except {
			return true
		}
	}
	return false
}

func (r *memoryRepo) Create(_ context.Context, in NewMember) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(in.Email, "") {
		return nil, fmt.Errorf("email %s: %w", in.Email, shared.ErrConflict)
	}
	r.seq++
	now := time.Now().Add(time.Duration(r.seq) * time.Second)
	m := Member{ID: fmt.Sprintf("m-%d", r.seq), Email: in.Email, Name: in.Name, Role: in.Role, CreatedAt: now, UpdatedAt: now}
	r.rows[m.ID] = m
	r.hashes[m.ID] = in.PasswordHash
	return &m, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, c Changes) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if c.Email != nil {
		if r.emailTaken(*c.Email, id) {
			return nil, shared.ErrConflict
		}
		m.Email = *c.Email
	}
	if c.Name != nil {
		m.Name = *c.Name
	}
	if c.Role != nil {
		m.Role = *c.Role
	}
	if c.PasswordHash != nil {
		r.hashes[id] = *c.PasswordHash
	}
	r.rows[id] = m
	return &m, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type auditSpy struct {
	entries []shared.AuditLog
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

var admin = rbac.Principal{AccountID: "admin-1", Role: rbac.RoleAdmin}

func newTestService(repo Repository, audit shared.AuditRecorder) *Service {
	return NewService(repo, audit, nil).WithHashCost(bcrypt.MinCost)
}

func TestCreateMemberDefaultsAndHashes(t *testing.T) {
	repo := newMemoryRepo()
	audit := &auditSpy{}
	svc := newTestService(repo, audit)

	m, err := svc.Create(context.Background(), admin, CreateMemberRequest{
		Name:     " Dana ",
		Email:    "Dana@AskCraft.test",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "dana@askcraft.test", m.Email)
	assert.Equal(t, "Dana", m.Name)
	assert.Equal(t, rbac.RoleEditor, m.Role)

	hash := repo.hashes[m.ID]
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, shared.AuditCreate, audit.entries[0].Action)
	assert.Equal(t, "admin-1", audit.entries[0].ActorID)
}

func TestCreateMemberDuplicateEmailConflicts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	req := CreateMemberRequest{Name: "Dana", Email: "dana@askcraft.test", Password: "secret1", Role: "USER"}

	_, err := svc.Create(context.Background(), admin, req)
	require.NoError(t, err)

	req.Email = "DANA@askcraft.test"
	_, err = svc.Create(context.Background(), admin, req)
	assert.ErrorIs(t, err, shared.ErrConflict)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateMemberRehashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	audit := &auditSpy{}
	svc := newTestService(repo, audit)
	m, err := svc.Create(context.Background(), admin, CreateMemberRequest{Name: "Dana", Email: "dana@askcraft.test", Password: "secret1"})
	require.NoError(t, err)

	password := "another-secret"
	role := "admin"
	updated, err := svc.Update(context.Background(), admin, m.ID, UpdateMemberRequest{Password: &password, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, updated.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[m.ID]), []byte(password)))
	require.Len(t, audit.entries, 2)
	assert.Equal(t, true, audit.entries[1].Meta["password_changed"])

	_, err = svc.Update(context.Background(), admin, "missing", UpdateMemberRequest{Password: &password})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteMember(t *testing.T) {
	repo := newMemoryRepo(Member{ID: "admin-1", Role: rbac.RoleAdmin}, Member{ID: "m-9", Role: rbac.RoleUser})
	svc := newTestService(repo, nil)

	err := svc.Delete(context.Background(), admin, "admin-1")
	assert.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.Delete(context.Background(), admin, "m-9"))
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "m-9"), shared.ErrNotFound)
}
