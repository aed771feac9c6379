package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

// CredentialRepositoryMSSQL is the SQL Server twin of CredentialRepository.
type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) repository.ICredential {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, c *model.OAuth2Credential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.CredentialStatusNormal
	}
	var refreshExp sql.NullTime
	if c.RefreshTokenExpiresAt != nil {
		refreshExp.Valid = true
		refreshExp.Time = *c.RefreshTokenExpiresAt
	}
	// MERGE keyed on (account_id, platform)
	q := `MERGE dbo.[oauth_credentials] AS target
USING (SELECT @p1 AS account_id, @p2 AS platform) AS src
ON target.account_id = src.account_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p3, refresh_token=@p4, access_token_expires_at=@p5,
    refresh_token_expires_at=@p6, scopes=@p7, status=@p8, updated_at=@p9
WHEN NOT MATCHED THEN INSERT
    (account_id, user_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, status, created_at, updated_at)
    VALUES (@p1, @p10, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p11, @p9);`
	_, err := r.db.ExecContext(ctx, q,
		c.AccountID, string(c.Platform), c.AccessToken, c.RefreshToken,
		c.AccessTokenExpiresAt, refreshExp, c.Scopes, string(c.Status),
		c.UpdatedAt, c.UserID, c.CreatedAt)
	return err
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, accountID string, platform model.Platform) (*model.OAuth2Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, user_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, status, created_at, updated_at
		 FROM oauth_credentials WHERE account_id=@p1 AND platform=@p2`, accountID, string(platform))
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

func (r *CredentialRepositoryMSSQL) UpdateTokens(ctx context.Context, c *model.OAuth2Credential) error {
	var refreshExp sql.NullTime
	if c.RefreshTokenExpiresAt != nil {
		refreshExp.Valid = true
		refreshExp.Time = *c.RefreshTokenExpiresAt
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_credentials SET access_token=@p1, refresh_token=@p2, access_token_expires_at=@p3, refresh_token_expires_at=@p4, status=@p5, updated_at=@p6
		 WHERE account_id=@p7 AND platform=@p8`,
		c.AccessToken, c.RefreshToken, c.AccessTokenExpiresAt, refreshExp,
		string(model.CredentialStatusNormal), time.Now().UTC(), c.AccountID, string(c.Platform))
	return err
}

func (r *CredentialRepositoryMSSQL) MarkStatus(ctx context.Context, accountID string, platform model.Platform, status model.CredentialStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_credentials SET status=@p1, updated_at=@p2 WHERE account_id=@p3 AND platform=@p4`,
		string(status), time.Now().UTC(), accountID, string(platform))
	return err
}
