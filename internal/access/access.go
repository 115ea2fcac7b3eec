// Package access decides what a caller may do with an owned resource.
package access

import "github.com/noah-isme/lostfound-api/internal/models"

// Level is the outcome of evaluating a caller against a resource owner.
type Level int

const (
	Denied Level = iota
	Public
	Admin
	Owner
)

func (l Level) String() string {
	switch l {
	case Public:
		return "public"
	case Admin:
		return "admin"
	case Owner:
		return "owner"
	default:
		return "denied"
	}
}

// CanManage reports whether the level permits privileged reads and writes.
func (l Level) CanManage() bool {
	return l == Owner || l == Admin
}

// CanView reports whether the level permits the public operations.
func (l Level) CanView() bool {
	return l == Public || l == Owner || l == Admin
}

// Caller is an authenticated principal. A nil *Caller is anonymous.
type Caller struct {
	ID   string
	Role models.UserRole
}

// IsAdmin is nil-safe.
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == models.RoleAdmin
}

// FromClaims converts verified token claims into a Caller.
func FromClaims(claims *models.JWTClaims) *Caller {
	if claims == nil {
		return nil
	}
	return &Caller{ID: claims.UserID, Role: claims.Role}
}

// Evaluate checks, in order: anonymous, administrator, owner.
func Evaluate(caller *Caller, ownerID string) Level {
	switch {
	case caller == nil:
		return Public
	case caller.Role == models.RoleAdmin:
		return Admin
	case caller.ID != "" && caller.ID == ownerID:
		return Owner
	default:
		return Denied
	}
}
