// Package auth defines the identity attached to an authenticated request.
// The service itself never writes roles: a key's role claim is provisioned
// out of band, so there is no path for a user to escalate themselves.
package auth

import "context"

// Role is the authorization level of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity holds the identity and role data carried by a validated API key.
type Identity struct {
	KeyID   string
	KeyHash string
	UserID  string
	Email   string
	Name    string
	Role    Role
}

// Admin reports whether the identity carries the admin role.
func (i *Identity) Admin() bool {
	return i.Role == RoleAdmin
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Identity, error)
}
