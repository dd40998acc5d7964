package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"content-studio/internal/domain"
	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.IdentityResolver = (*AuthManager)(nil)

// AuthManager issues and verifies HS256 bearer tokens whose subject is the owner id.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{secret: []byte(secret), ttl: ttl, issuer: "content-studio"}
}

type OwnerClaims struct {
	jwt.RegisteredClaims
}

func (a *AuthManager) Mint(ownerID string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", domain.ErrInvalidArgument
	}
	now := time.Now()
	claims := OwnerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Resolve returns "" for an empty credential and ErrUnauthorized for any token
// that does not verify.
func (a *AuthManager) Resolve(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", nil
	}
	claims := &OwnerClaims{}
	tkn, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil || !tkn.Valid {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// bearerToken extracts the credential from "Authorization: Bearer <jwt>".
// A header in any other scheme is returned as is so that it fails verification.
func bearerToken(r *http.Request) string {
	hdr := strings.TrimSpace(r.Header.Get("Authorization"))
	if hdr == "" {
		return ""
	}
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	return hdr
}
