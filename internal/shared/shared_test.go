package shared

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageParams(t *testing.T) {
	cases := []struct {
		query       string
		page, limit int
	}{
		{"", 1, DefaultPerPage},
		{"page=3&per_page=5", 3, 5},
		{"page=2&limit=7", 2, 7},
		{"per_page=9&limit=7", 1, 9},
		{"page=-1&per_page=1000", 1, MaxPerPage},
		{"page=x&per_page=y", 1, DefaultPerPage},
	}
	for _, tc := range cases {
		q, err := url.ParseQuery(tc.query)
		assert.NoError(t, err)
		page, perPage := PageParams(q)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.limit, perPage, tc.query)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 10, p.Offset())

	p = NewPagination(0, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
}

func TestUserSafeMessageHidesWrappedDetail(t *testing.T) {
	err := fmt.Errorf("members: email owner@askcraft.test taken: %w", ErrConflict)
	assert.Equal(t, "Already exists", UserSafeMessage(err))
	assert.Equal(t, "Something went wrong", UserSafeMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "", UserSafeMessage(nil))
}

func TestIsAuthFailure(t *testing.T) {
	for _, err := range []error{ErrUnauthorized, ErrInvalidCredentials, ErrInvalidToken, fmt.Errorf("wrap: %w", ErrTokenExpired)} {
		assert.True(t, IsAuthFailure(err), err.Error())
	}
	assert.False(t, IsAuthFailure(ErrForbidden))
	assert.False(t, IsAuthFailure(ErrTooManyAttempts))
}

func TestAuditLogValidate(t *testing.T) {
	assert.Error(t, AuditLog{Action: AuditCreate, Entity: "article", EntityID: "1"}.validate())
	assert.NoError(t, AuditLog{ActorID: "a", Action: AuditCreate, Entity: "article", EntityID: "1"}.validate())
	assert.Error(t, (*AuditLogger)(nil).Record(t.Context(), AuditLog{}))
}
