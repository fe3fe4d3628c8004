// Package auth verifies bearer credentials issued by the external identity
// provider and exposes the subject and profile claims they carry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any credential that does not verify.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller as described by the identity provider.
type Identity struct {
	Subject   string
	Email     string
	Username  string
	FirstName string
	LastName  string
	Picture   string
}

// Verifier turns a raw bearer credential into a verified Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims is the token payload understood by JWTVerifier.
type Claims struct {
	Email      string `json:"email,omitempty"`
	Username   string `json:"username,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed tokens.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTVerifier creates a verifier. Empty issuer or audience disables that check.
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses and validates the token and returns the identity it names.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{
		Subject:   subject,
		Email:     claims.Email,
		Username:  claims.Username,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		Picture:   claims.Picture,
	}, nil
}

// Mint signs a token for the identity. It backs the local dev token command
// and tests; production tokens come from the identity provider.
func (v *JWTVerifier) Mint(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:      id.Email,
		Username:   id.Username,
		GivenName:  id.FirstName,
		FamilyName: id.LastName,
		Picture:    id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if v.issuer != "" {
		claims.Issuer = v.issuer
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
