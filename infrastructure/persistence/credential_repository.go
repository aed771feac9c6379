package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

var ErrCredentialNotFound = repository.ErrCredentialNotFound

type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) repository.ICredential {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Upsert(ctx context.Context, c *model.OAuth2Credential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.CredentialStatusNormal
	}
	q := `INSERT INTO oauth_credentials (account_id, user_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, status, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		  ON CONFLICT (account_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			access_token_expires_at=EXCLUDED.access_token_expires_at,
			refresh_token_expires_at=EXCLUDED.refresh_token_expires_at,
			scopes=EXCLUDED.scopes,
			status=EXCLUDED.status,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q,
		c.AccountID, c.UserID, c.Platform, c.AccessToken, c.RefreshToken,
		c.AccessTokenExpiresAt, c.RefreshTokenExpiresAt, c.Scopes, c.Status,
		c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CredentialRepository) Get(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, user_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, status, created_at, updated_at
		 FROM oauth_credentials WHERE account_id=$1 AND platform=$2`, accountID, platform)
	c := &model.OAuth2Credential{}
	var refreshExp sql.NullTime
	if err := row.Scan(&c.ID, &c.AccountID, &c.UserID, &c.Platform, &c.AccessToken,
		&c.RefreshToken, &c.AccessTokenExpiresAt, &refreshExp, &c.Scopes, &c.Status,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	if refreshExp.Valid {
		v := refreshExp.Time
		c.RefreshTokenExpiresAt = &v
	}
	return c, nil
}

func (r *CredentialRepository) UpdateTokens(ctx context.Context, c *model.OAuth2Credential) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_credentials SET access_token=$1, refresh_token=$2, access_token_expires_at=$3, refresh_token_expires_at=$4, status=$5, updated_at=$6
		 WHERE account_id=$7 AND platform=$8`,
		c.AccessToken, c.RefreshToken, c.AccessTokenExpiresAt, c.RefreshTokenExpiresAt,
		model.CredentialStatusNormal, time.Now().UTC(), c.AccountID, c.Platform)
	return err
}

func (r *CredentialRepository) MarkStatus(ctx context.Context, accountID string, platform model.Platform, status model.CredentialStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_credentials SET status=$1, updated_at=$2 WHERE account_id=$3 AND platform=$4`,
		status, time.Now().UTC(), accountID, platform)
	return err
}
