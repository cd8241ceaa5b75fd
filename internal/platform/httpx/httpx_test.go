package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askcraft/askcraft-web/internal/shared"
)

type signup struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=ADMIN EDITOR USER"`
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", shared.ErrValidation), http.StatusBadRequest},
		{NewValidationError("email", "is required"), http.StatusBadRequest},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("rbac: %w", shared.ErrTokenExpired), http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{shared.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("members: email a@b.c taken: %w", shared.ErrConflict), http.StatusConflict},
		{shared.ErrTooManyAttempts, http.StatusTooManyRequests},
		{errors.New("connection reset by peer"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, nil, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		assert.NotContains(t, rec.Body.String(), "a@b.c")
		assert.NotContains(t, rec.Body.String(), "connection reset")
	}
}

func TestBindReportsFieldErrors(t *testing.T) {
	v := NewValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"A","email":"nope","role":"ROOT"}`))

	var body signup
	err := v.Bind(req, &body)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "role")

	rec := httptest.NewRecorder()
	RespondError(rec, nil, err)
	p := decodeProblem(t, rec)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Len(t, p.Errors, 3)
}

func TestBindRejectsMalformedJSON(t *testing.T) {
	v := NewValidator()
	for _, raw := range []string{`{`, `{"name":"Ann","email":"a@b.co","extra":1}`, ``} {
		var body signup
		err := v.Bind(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw)), &body)
		assert.ErrorIs(t, err, shared.ErrValidation, raw)
	}
}

func TestJSONAndNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
