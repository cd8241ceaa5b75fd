package members

import (
	"time"

	"github.com/askcraft/askcraft-web/internal/rbac"
)

// Member is an account as seen by administrators. The password hash is never
// loaded into this type.
type Member struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMember holds the values stored for a new account.
type NewMember struct {
	Email        string
	Name         string
	Role         rbac.Role
	PasswordHash string
}

// Changes lists the columns to update; nil fields are left untouched.
type Changes struct {
	Email        *string
	Name         *string
	Role         *rbac.Role
	PasswordHash *string
}

// Empty reports whether no column would change.
func (c Changes) Empty() bool {
	return c.Email == nil && c.Name == nil && c.Role == nil && c.PasswordHash == nil
}
