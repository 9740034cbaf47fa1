package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldocs/quill-api/internal/config"
)

const testSecret = "test-jwt-secret-that-is-32-chars-long"

// newTestService builds a service with a frozen clock so expiry can be
// tested deterministically.
func newTestService(secret string, lifetime time.Duration, at time.Time) *hmacJWTService {
	return &hmacJWTService{
		signingKey:    []byte(secret),
		tokenLifetime: lifetime,
		timeFunc:      func() time.Time { return at },
		clockSkew:     2 * time.Minute,
	}
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	t.Run("accepts a 32 character secret", func(t *testing.T) {
		t.Parallel()
		svc, err := NewJWTService(config.AuthConfig{
			JWTSecret:            testSecret,
			TokenLifetimeMinutes: 60,
		})
		assert.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("rejects a short secret", func(t *testing.T) {
		t.Parallel()
		svc, err := NewJWTService(config.AuthConfig{
			JWTSecret:            "too-short",
			TokenLifetimeMinutes: 60,
		})
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(testSecret, time.Hour, now)
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestJWTService_ValidateToken(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestService(testSecret, time.Hour, issuedAt)
	userID := uuid.New()

	token, err := issuer.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	t.Run("rejects an expired token", func(t *testing.T) {
		t.Parallel()
		// Well past expiry plus the allowed clock skew.
		validator := newTestService(testSecret, time.Hour, issuedAt.Add(2*time.Hour))
		_, err := validator.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("tolerates expiry within the clock skew", func(t *testing.T) {
		t.Parallel()
		validator := newTestService(testSecret, time.Hour, issuedAt.Add(61*time.Minute))
		claims, err := validator.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		t.Parallel()
		validator := newTestService("a-different-secret-thats-32-chars!!", time.Hour, issuedAt)
		_, err := validator.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a malformed token", func(t *testing.T) {
		t.Parallel()
		_, err := issuer.ValidateToken(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects an unexpected signing algorithm", func(t *testing.T) {
		t.Parallel()

		claims := jwtCustomClaims{
			UserID:    userID,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(issuedAt),
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}
		hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = issuer.ValidateToken(context.Background(), hs512)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token of another type", func(t *testing.T) {
		t.Parallel()

		claims := jwtCustomClaims{
			UserID:    userID,
			TokenType: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(issuedAt),
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}
		refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = issuer.ValidateToken(context.Background(), refresh)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})
}
