package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, exp, err := GenerateToken(userID, "farmer@example.com", "farmer", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "farmer@example.com", claims.Email)
	assert.Equal(t, "farmer", claims.Role)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _, err := GenerateToken(uuid.New(), "farmer@example.com", "farmer", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}
