package services

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/desertthunder/formcheck/internal/models"
	"github.com/desertthunder/formcheck/internal/shared"
)

// PlaceholderUsername is reported after a reissue when no better identity is known.
const PlaceholderUsername = "user"

// IdentityResolver decides who the user is after a silent reissue, where the
// server returns only a new access token.
type IdentityResolver interface {
	Resolve(accessToken string) models.User
}

// PlaceholderIdentity always reports the same username.
type PlaceholderIdentity struct {
	Username string
}

func (p PlaceholderIdentity) Resolve(string) models.User {
	if p.Username == "" {
		return models.User{Username: PlaceholderUsername}
	}
	return models.User{Username: p.Username}
}

// ClaimsIdentity reads the username from the access token claims without verifying
// the signature. The client holds no key; the token is only trusted for display.
type ClaimsIdentity struct {
	Fallback IdentityResolver
}

func (c ClaimsIdentity) Resolve(accessToken string) models.User {
	claims, err := ParseClaims(accessToken)
	if err != nil || claims.Username == "" {
		fallback := c.Fallback
		if fallback == nil {
			fallback = PlaceholderIdentity{}
		}
		return fallback.Resolve(accessToken)
	}
	return models.User{Username: claims.Username, RealName: claims.RealName}
}

// NewIdentityResolver returns the resolver named by the session.identity setting.
func NewIdentityResolver(kind string) IdentityResolver {
	switch kind {
	case shared.IdentityClaims:
		return ClaimsIdentity{Fallback: PlaceholderIdentity{}}
	default:
		return PlaceholderIdentity{}
	}
}

// AccessClaims are the claims the analysis service puts in its tokens.
type AccessClaims struct {
	Category string `json:"category"`
	Username string `json:"username"`
	RealName string `json:"realName"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of a JWT without verifying it.
//
// Tokens issued by /reissue carry realName and role swapped; the pair is
// normalized so RealName never holds a ROLE_ value.
func ParseClaims(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: malformed token: %v", shared.ErrInvalidInput, err)
	}
	if strings.HasPrefix(claims.RealName, "ROLE_") && !strings.HasPrefix(claims.Role, "ROLE_") {
		claims.RealName, claims.Role = claims.Role, claims.RealName
	}
	return &claims, nil
}

// TokenInfo wraps a raw access token in an [oauth2.Token] with its expiry taken from the exp claim.
//
// Opaque tokens yield a token without expiry and no error.
func TokenInfo(raw string) (*oauth2.Token, error) {
	if raw == "" {
		return nil, shared.ErrNotAuthenticated
	}

	token := &oauth2.Token{AccessToken: raw, TokenType: AccessHeader}

	claims, err := ParseClaims(raw)
	if err != nil {
		return token, nil
	}
	if claims.ExpiresAt != nil {
		token.Expiry = claims.ExpiresAt.Time
	}
	return token, nil
}
