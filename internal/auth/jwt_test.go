package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskboard/internal/auth"
)

func TestJWT_IssueAndValidate(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key-very-long-and-secure"
	teamID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name string
		role string
	}{
		{name: "admin", role: "admin"},
		{name: "member", role: "member"},
		{name: "viewer", role: "viewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := auth.IssueAccessToken(secret, teamID, userID, tt.role, 10*time.Minute)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := auth.ValidateAccessToken(secret, token)
			require.NoError(t, err)

			assert.Equal(t, teamID.String(), claims.TeamID)
			assert.Equal(t, userID.String(), claims.UserID)
			assert.Equal(t, userID.String(), claims.Subject)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, "access", claims.TokenType)
			assert.Equal(t, "taskboard", claims.Issuer)
			assert.NotNil(t, claims.IssuedAt)
			assert.NotNil(t, claims.ExpiresAt)
		})
	}
}

func TestJWT_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key"

	// Issue a token that has already expired (negative TTL).
	token, err := auth.IssueAccessToken(secret, uuid.New(), uuid.New(), "member", -1*time.Second)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(secret, token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_InvalidSecretRejected(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken("correct-secret", uuid.New(), uuid.New(), "member", 5*time.Minute)
	require.NoError(t, err)

	claims, err := auth.ValidateToken("wrong-secret", token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_MalformedTokenRejected(t *testing.T) {
	t.Parallel()

	claims, err := auth.ValidateToken("secret", "not.a.valid.jwt.token")
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

// signClaims signs arbitrary claims with HS256, bypassing IssueAccessToken.
func signClaims(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWT_ForeignIssuerRejected(t *testing.T) {
	t.Parallel()

	secret := "shared-secret"
	token := signClaims(t, secret, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TeamID:    uuid.NewString(),
		UserID:    uuid.NewString(),
		Role:      "admin",
		TokenType: "access",
	})

	_, err := auth.ValidateToken(secret, token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_NonAccessTokenRejected(t *testing.T) {
	t.Parallel()

	secret := "shared-secret"
	token := signClaims(t, secret, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskboard",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		TeamID:    uuid.NewString(),
		UserID:    uuid.NewString(),
		Role:      "admin",
		TokenType: "refresh",
	})

	claims, err := auth.ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.TokenType)

	_, err = auth.ValidateAccessToken(secret, token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPeekClaims(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token, err := auth.IssueAccessToken("peek-secret", uuid.New(), userID, "member", time.Minute)
	require.NoError(t, err)

	claims, err := auth.PeekClaims(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "member", claims.Role)

	_, err = auth.PeekClaims("not-a-jwt")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
