package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/secure-health/internal/errors"
)

// Identity holds display claims read from an ID token.
type Identity struct {
	Subject           string
	Name              string
	GivenName         string
	Email             string
	PreferredUsername string
}

// DisplayName picks the friendliest available name.
func (i Identity) DisplayName() string {
	switch {
	case i.GivenName != "":
		return i.GivenName
	case i.Name != "":
		return i.Name
	case i.PreferredUsername != "":
		return i.PreferredUsername
	default:
		return i.Email
	}
}

type idTokenClaims struct {
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// ParseIdentity decodes the ID token claims WITHOUT verifying the signature.
// The result is for display only and must never be used for an authorization decision.
func ParseIdentity(idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, errors.ErrNoIDToken
	}
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return Identity{}, fmt.Errorf("parse id token: %w", err)
	}
	return Identity{
		Subject:           claims.Subject,
		Name:              claims.Name,
		GivenName:         claims.GivenName,
		Email:             claims.Email,
		PreferredUsername: claims.PreferredUsername,
	}, nil
}
