package repository

import (
	"context"

	"crosspost/domain/model"
)

// ICredential is the durable store for platform OAuth credentials.
type ICredential interface {
	Upsert(ctx context.Context, cred *model.OAuth2Credential) error
	Get(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error)
	// UpdateTokens replaces the token material after a refresh and resets the
	// credential status to normal.
	UpdateTokens(ctx context.Context, cred *model.OAuth2Credential) error
	MarkStatus(ctx context.Context, accountID string, platform model.Platform, status model.CredentialStatus) error
}
