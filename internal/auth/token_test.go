package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanterms/internal/auth"
	"loanterms/internal/config"
	"loanterms/internal/domain"
)

func newService(t *testing.T, secret string) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(config.JWTConfig{Secret: secret, Issuer: "loanterms", TokenExpiry: time.Hour})
	require.NoError(t, err)
	return svc
}

func TestIssueAndValidate(t *testing.T) {
	svc := newService(t, "test-secret")

	token, expiresAt, err := svc.Issue("ingest-job", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ingest-job", claims.Subject)
	assert.Equal(t, "loanterms", claims.Issuer)
}

func TestValidate_Rejects(t *testing.T) {
	svc := newService(t, "test-secret")

	otherKey, _, err := newService(t, "other-secret").Issue("job", time.Minute)
	require.NoError(t, err)

	past := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "loanterms",
		Audience:  jwt.ClaimStrings{"loanterms-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	pastSigned, err := past.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	wrongAud := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "loanterms",
		Audience:  jwt.ClaimStrings{"refresh"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	wrongAudSigned, err := wrongAud.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noAud := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "loanterms",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	noAudSigned, err := noAud.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key":        otherKey,
		"expired":          pastSigned,
		"wrong audience":   wrongAudSigned,
		"missing audience": noAudSigned,
		"garbage":          "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := auth.NewTokenService(config.JWTConfig{})
	assert.Error(t, err)
}
