package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

type memoryAccounts struct {
	byEmail map[string]Account
	err     error
}

func newMemoryAccounts(t *testing.T, accounts ...Account) *memoryAccounts {
	t.Helper()
	m := &memoryAccounts{byEmail: map[string]Account{}}
	for _, acc := range accounts {
		m.byEmail[acc.Email] = acc
	}
	return m
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	acc, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &acc, nil
}

func (m *memoryAccounts) ResolvePrincipal(_ context.Context, id string) (rbac.Principal, error) {
	for _, acc := range m.byEmail {
		if acc.ID == id {
			return rbac.Principal{AccountID: acc.ID, Role: acc.Role, Email: acc.Email, Name: acc.Name}, nil
		}
	}
	return rbac.Principal{}, shared.ErrNotFound
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func editorAccount(t *testing.T) Account {
	return Account{
		ID:           "acc-editor",
		Email:        "editor@askcraft.test",
		Name:         "Eddie",
		Role:         rbac.RoleEditor,
		PasswordHash: hashPassword(t, "s3cret-pass"),
	}
}

func TestLoginSuccess(t *testing.T) {
	codec := newTestCodec(t, time.Now())
	svc := NewService(newMemoryAccounts(t, editorAccount(t)), codec, nil, nil)

	sess, err := svc.Login(context.Background(), "  Editor@AskCraft.test ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, SessionUser{ID: "acc-editor", Role: rbac.RoleEditor, Email: "editor@askcraft.test", Name: "Eddie"}, sess.User)

	claims, err := codec.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc-editor", claims.Subject)
	assert.Equal(t, rbac.RoleEditor, claims.Role)
	assert.Equal(t, DefaultSessionTTL, svc.TTL())
}

func TestLoginFailuresShareShape(t *testing.T) {
	svc := NewService(newMemoryAccounts(t, editorAccount(t)), newTestCodec(t, time.Now()), nil, nil)

	sess, unknownErr := svc.Login(context.Background(), "nobody@askcraft.test", "s3cret-pass")
	assert.Nil(t, sess)
	sess, wrongErr := svc.Login(context.Background(), "editor@askcraft.test", "wrong-pass")
	assert.Nil(t, sess)

	assert.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, shared.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginStoreFailureIsNotCredentialFailure(t *testing.T) {
	repo := newMemoryAccounts(t)
	repo.err = errors.New("connection reset")
	svc := NewService(repo, newTestCodec(t, time.Now()), nil, nil)

	_, err := svc.Login(context.Background(), "editor@askcraft.test", "s3cret-pass")
	require.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func newTestThrottle(t *testing.T, max int) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, max, 15*time.Minute), mr
}

func TestLoginThrottleLocksOut(t *testing.T) {
	throttle, mr := newTestThrottle(t, 3)
	svc := NewService(newMemoryAccounts(t, editorAccount(t)), newTestCodec(t, time.Now()), throttle, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "editor@askcraft.test", "wrong-pass")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	_, err := svc.Login(ctx, "editor@askcraft.test", "s3cret-pass")
	assert.ErrorIs(t, err, shared.ErrTooManyAttempts)

	mr.FastForward(16 * time.Minute)
	_, err = svc.Login(ctx, "editor@askcraft.test", "s3cret-pass")
	assert.NoError(t, err)
}

func TestLoginThrottleResetsOnSuccess(t *testing.T) {
	throttle, _ := newTestThrottle(t, 3)
	svc := NewService(newMemoryAccounts(t, editorAccount(t)), newTestCodec(t, time.Now()), throttle, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = svc.Login(ctx, "editor@askcraft.test", "wrong-pass")
	}
	_, err := svc.Login(ctx, "editor@askcraft.test", "s3cret-pass")
	require.NoError(t, err)

	allowed, err := throttle.Allowed(ctx, "editor@askcraft.test")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLoginThrottleFailsOpen(t *testing.T) {
	throttle, mr := newTestThrottle(t, 1)
	mr.Close()
	svc := NewService(newMemoryAccounts(t, editorAccount(t)), newTestCodec(t, time.Now()), throttle, nil)

	_, err := svc.Login(context.Background(), "editor@askcraft.test", "s3cret-pass")
	assert.NoError(t, err)
}

func TestNilThrottleAllows(t *testing.T) {
	var throttle *LoginThrottle
	ok, err := throttle.Allowed(context.Background(), "x@y.z")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, throttle.Fail(context.Background(), "x@y.z"))
	assert.NoError(t, throttle.Reset(context.Background(), "x@y.z"))
}
