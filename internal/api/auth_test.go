package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBasicAuthenticator_Plain(t *testing.T) {
	a, err := newBasicAuthenticator("admin", "password", "")
	require.NoError(t, err)

	assert.True(t, a.Verify("admin", "password"))
	assert.False(t, a.Verify("admin", "Password"))
	assert.False(t, a.Verify("Admin", "password"))
	assert.False(t, a.Verify("", ""))
	assert.False(t, a.Verify("admin", "password "))
}

func TestBasicAuthenticator_Hash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	a, err := newBasicAuthenticator("bench", "", string(hash))
	require.NoError(t, err)

	assert.True(t, a.Verify("bench", "s3cret"))
	assert.False(t, a.Verify("bench", ""))
	assert.False(t, a.Verify("other", "s3cret"))
}

func TestBasicAuthenticator_InvalidHash(t *testing.T) {
	_, err := newBasicAuthenticator("bench", "", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidPasswordHash)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "api_key", toSnakeCase("APIKey"))
	assert.Equal(t, "num_requests", toSnakeCase("NumRequests"))
	assert.Equal(t, "randomize_prompt", toSnakeCase("RandomizePrompt"))
	assert.Equal(t, "timeout", toSnakeCase("Timeout"))
}
