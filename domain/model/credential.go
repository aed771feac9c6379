package model

import "time"

// CredentialStatus tracks whether a stored credential is still usable.
type CredentialStatus string

const (
	CredentialStatusNormal   CredentialStatus = "normal"
	CredentialStatusAbnormal CredentialStatus = "abnormal"
)

// OAuth2Credential stores platform OAuth tokens per account. Created by the
// authorization manager on code exchange; mutated by the token lifecycle
// manager on refresh.
type OAuth2Credential struct {
	ID                    int64            `json:"id"`
	AccountID             string           `json:"account_id"`
	UserID                string           `json:"user_id"`
	Platform              Platform         `json:"platform"`
	AccessToken           string           `json:"access_token"`
	RefreshToken          string           `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time        `json:"access_token_expires_at"`
	RefreshTokenExpiresAt *time.Time       `json:"refresh_token_expires_at,omitempty"`
	Scopes                string           `json:"scopes"`
	Status                CredentialStatus `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires inside the given
// buffer, i.e. a proactive refresh is due.
func (c *OAuth2Credential) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return !c.AccessTokenExpiresAt.After(now.Add(buffer))
}

// RefreshExpired reports whether the refresh token itself is past its expiry.
// Credentials without a refresh expiry never report true here.
func (c *OAuth2Credential) RefreshExpired(now time.Time) bool {
	return c.RefreshTokenExpiresAt != nil && !c.RefreshTokenExpiresAt.After(now)
}
