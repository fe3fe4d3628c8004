package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters-long"

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier(testSecret, "ravencube-idp", "ravencube-api")

	token, err := v.Mint(Identity{
		Subject:   "user_2abc",
		Email:     "ada@example.com",
		Username:  "ada",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Picture:   "https://img.example.com/ada.png",
	}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", id.Subject)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "Ada", id.FirstName)
	assert.Equal(t, "Lovelace", id.LastName)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := NewJWTVerifier(testSecret, "ravencube-idp", "ravencube-api")
	other := NewJWTVerifier("another-secret-at-least-32-characters", "ravencube-idp", "ravencube-api")
	wrongIssuer := NewJWTVerifier(testSecret, "someone-else", "ravencube-api")

	forged, err := other.Mint(Identity{Subject: "user_1"}, time.Hour)
	require.NoError(t, err)
	expired, err := v.Mint(Identity{Subject: "user_1"}, -time.Minute)
	require.NoError(t, err)
	misissued, err := wrongIssuer.Mint(Identity{Subject: "user_1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := v.Mint(Identity{}, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user_1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"wrong secret": forged,
		"expired":      expired,
		"wrong issuer": misissued,
		"no subject":   noSubject,
		"alg none":     unsigned,
		"garbage":      "not-a-jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}
