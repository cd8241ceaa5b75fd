package auth

import (
	"time"

	"github.com/askcraft/askcraft-web/internal/rbac"
)

// Account is the credential view of an account used during login.
type Account struct {
	ID           string
	Email        string
	Name         string
	Role         rbac.Role
	PasswordHash string
}

// Claims is what a verified session token asserts.
type Claims struct {
	Subject   string
	Role      rbac.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionUser is the public descriptor returned after login. It never
// carries the password hash.
type SessionUser struct {
	ID    string    `json:"id"`
	Role  rbac.Role `json:"role"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      SessionUser
}
