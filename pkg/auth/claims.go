package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

/*
TokenClaims is what the tools report about a delegated access token. The
values come from the token itself and are never verified locally; the issuing
API remains the authority on whether the token is accepted.
*/
type TokenClaims struct {
	Subject   string    `json:"subject,omitempty"`
	User      string    `json:"user,omitempty"`
	Name      string    `json:"name,omitempty"`
	TenantID  string    `json:"tenantId,omitempty"`
	Audience  []string  `json:"audience,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (claims TokenClaims) Expired(now time.Time) bool {
	return !claims.ExpiresAt.IsZero() && !now.Before(claims.ExpiresAt)
}

/*
InspectToken decodes the claims of a JWT access token without checking its
signature.
*/
func InspectToken(raw string) (TokenClaims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

	mapClaims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, mapClaims); err != nil {
		return TokenClaims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims := TokenClaims{
		Subject:  stringClaim(mapClaims, "sub"),
		User:     firstClaim(mapClaims, "upn", "preferred_username", "unique_name", "email"),
		Name:     stringClaim(mapClaims, "name"),
		TenantID: stringClaim(mapClaims, "tid"),
		Scopes:   strings.Fields(stringClaim(mapClaims, "scp")),
	}

	if aud, err := mapClaims.GetAudience(); err == nil {
		claims.Audience = aud
	}

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}

func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value := stringClaim(claims, key); value != "" {
			return value
		}
	}

	return ""
}
