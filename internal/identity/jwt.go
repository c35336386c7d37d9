package identity

import (
	"context"
	"strings"

	"medichat/internal/domain"
	medichat_errors "medichat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims mirrors the token shape the clinic's auth service issues.
type AccessClaims struct {
	UserID      string `json:"sub"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// JWTProvider verifies bearer tokens locally and confirms the subject
// against the user directory. Token issuance belongs to the external auth
// service; this side only validates.
type JWTProvider struct {
	secret    []byte
	directory Directory
}

func NewJWTProvider(secret string, directory Directory) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), directory: directory}
}

func (p *JWTProvider) ResolveIdentity(ctx context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, medichat_errors.ErrUnauthorized
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, medichat_errors.ErrUnauthorized
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, medichat_errors.ErrUnauthorized
	}

	role := domain.Role(claims.Role)
	if !role.Valid() || claims.UserID == "" {
		return Identity{}, medichat_errors.ErrUnauthorized
	}

	ident := Identity{
		UserID:      claims.UserID,
		Role:        role,
		DisplayName: claims.DisplayName,
	}

	// Confirm the subject still exists; a revoked or deleted account must
	// not keep a working credential.
	if p.directory != nil {
		profile, err := p.directory.LookupUser(ctx, claims.UserID, role)
		if err != nil {
			return Identity{}, medichat_errors.ErrUnauthorized
		}
		if profile.DisplayName != "" {
			ident.DisplayName = profile.DisplayName
		}
	}

	return ident, nil
}
