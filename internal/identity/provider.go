package identity

import (
	"context"

	"medichat/internal/domain"
)

// Identity is the resolved subject of a credential.
type Identity struct {
	UserID      string
	Role        domain.Role
	DisplayName string
}

// Profile is a directory entry for a patient or doctor. Specialization is
// only populated for doctors.
type Profile struct {
	UserID         string      `json:"user_id"`
	Role           domain.Role `json:"role"`
	DisplayName    string      `json:"display_name"`
	Email          string      `json:"email,omitempty"`
	Specialization string      `json:"specialization,omitempty"`
}

// Provider resolves a bearer credential to a stable identity. Both the HTTP
// surface and the live channel authenticate through it.
type Provider interface {
	ResolveIdentity(ctx context.Context, credential string) (Identity, error)
}

// Directory is the narrow read interface onto the external user store. The
// chat core only ever looks users up; profile CRUD lives elsewhere.
type Directory interface {
	LookupUser(ctx context.Context, userID string, role domain.Role) (Profile, error)
	ListDoctors(ctx context.Context) ([]Profile, error)
}
