package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOAuth2Credential_ExpiresWithin(t *testing.T) {
	now := time.Now()
	cred := &OAuth2Credential{AccessTokenExpiresAt: now.Add(5 * time.Minute)}

	assert.True(t, cred.ExpiresWithin(now, 10*time.Minute))
	assert.False(t, cred.ExpiresWithin(now, time.Minute))
	// Exactly at the boundary counts as expiring.
	assert.True(t, cred.ExpiresWithin(now, 5*time.Minute))
}

func TestOAuth2Credential_RefreshExpired(t *testing.T) {
	now := time.Now()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&OAuth2Credential{RefreshTokenExpiresAt: &past}).RefreshExpired(now))
	assert.False(t, (&OAuth2Credential{RefreshTokenExpiresAt: &future}).RefreshExpired(now))
	// No recorded refresh expiry means the refresh token never ages out.
	assert.False(t, (&OAuth2Credential{}).RefreshExpired(now))
}
