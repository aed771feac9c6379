package repository

import (
	"context"

	"crosspost/domain/model"
)

// NewAccount is the account-service payload created after a successful
// consent flow.
type NewAccount struct {
	UserID   string
	Platform model.Platform
	UID      string
	Nickname string
	Avatar   string
}

// IAccountService is the identity/account collaborator; account CRUD lives
// outside this core.
type IAccountService interface {
	// EnsureAccount creates or finds the account bound to (userID, platform,
	// uid) and returns its id. Calling it twice with the same identity
	// returns the same account.
	EnsureAccount(ctx context.Context, acc NewAccount) (accountID string, err error)
}

// INotifier delivers publish-outcome events; delivery mechanics are outside
// this core.
type INotifier interface {
	NotifyOutcome(ctx context.Context, task *model.PublishTask) error
}
