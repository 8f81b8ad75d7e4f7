package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("2f7d8a9e-1c3b-4d5e-8f6a-0b1c2d3e4f5a")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "2f7d8a9e-1c3b-4d5e-8f6a-0b1c2d3e4f5a", userID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = ValidateToken("")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	SetSecret("key-one")
	token, err := GenerateToken("some-user")
	require.NoError(t, err)

	SetSecret("key-two")
	defer SetSecret("dev-only-insecure-secret")

	_, err = ValidateToken(token)
	assert.Error(t, err)
}
