package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/askcraft/askcraft-web/internal/shared"
)

// TokenVerifier resolves a session token to the account it was issued for.
type TokenVerifier interface {
	Subject(token string) (string, error)
}

// AccountResolver loads the current state of an account. It returns
// shared.ErrNotFound when the account no longer exists.
type AccountResolver interface {
	ResolvePrincipal(ctx context.Context, accountID string) (Principal, error)
}

// TokenExtractor pulls the raw session token out of a request.
type TokenExtractor func(r *http.Request) string

// Authorizer performs the fine-grained checks every protected operation runs
// itself, independent of the edge gate.
type Authorizer struct {
	tokens   TokenVerifier
	accounts AccountResolver
	extract  TokenExtractor
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(tokens TokenVerifier, accounts AccountResolver, extract TokenExtractor) *Authorizer {
	return &Authorizer{tokens: tokens, accounts: accounts, extract: extract}
}

// Authenticate verifies the request's session token and re-resolves the
// caller from the account store, so a role change applies immediately even
// while an older token is still valid.
func (a *Authorizer) Authenticate(r *http.Request) (Principal, error) {
	token := a.extract(r)
	if token == "" {
		return Principal{}, shared.ErrUnauthorized
	}
	subject, err := a.tokens.Subject(token)
	if err != nil {
		return Principal{}, fmt.Errorf("rbac: verify token: %w", err)
	}
	p, err := a.accounts.ResolvePrincipal(r.Context(), subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Principal{}, fmt.Errorf("rbac: account %s gone: %w", subject, shared.ErrUnauthorized)
		}
		return Principal{}, fmt.Errorf("rbac: resolve account: %w", err)
	}
	return p, nil
}

// RequireRole returns shared.ErrForbidden unless p holds one of roles.
func RequireRole(p Principal, roles ...Role) error {
	if p.Role.In(roles...) {
		return nil
	}
	return fmt.Errorf("rbac: role %s not permitted: %w", p.Role, shared.ErrForbidden)
}

// OwnerLookup returns the owning account ID of a resource, or
// shared.ErrNotFound when the resource does not exist.
type OwnerLookup func(ctx context.Context, resourceID string) (string, error)

// OwnershipRule scopes EDITOR mutations to resources they own. ADMIN bypasses
// the rule entirely; every other role is rejected.
type OwnershipRule struct {
	Kind  string
	Owner OwnerLookup
}

// Check enforces the rule for p acting on resourceID.
func (rule OwnershipRule) Check(ctx context.Context, p Principal, resourceID string) error {
	switch p.Role {
	case RoleAdmin:
		return nil
	case RoleEditor:
		owner, err := rule.Owner(ctx, resourceID)
		if err != nil {
			return fmt.Errorf("rbac: %s owner: %w", rule.Kind, err)
		}
		if owner != p.AccountID {
			return fmt.Errorf("rbac: %s %s not owned by caller: %w", rule.Kind, resourceID, shared.ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("rbac: role %s cannot modify %s: %w", p.Role, rule.Kind, shared.ErrForbidden)
	}
}
