package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/repository"
)

// EnsureAccountSchemaMSSQL mirrors EnsureAccountSchema for SQL Server.
func EnsureAccountSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'[dbo].[platform_accounts]') AND type = N'U')
	CREATE TABLE dbo.platform_accounts (
		id NVARCHAR(64) PRIMARY KEY,
		user_id NVARCHAR(64) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		uid NVARCHAR(128) NOT NULL,
		nickname NVARCHAR(256) NOT NULL DEFAULT '',
		avatar NVARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME2 NOT NULL,
		updated_at DATETIME2 NOT NULL,
		CONSTRAINT uq_platform_accounts UNIQUE (user_id, platform, uid)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring account schema: %w", err)
	}
	return nil
}

type AccountRepositoryMSSQL struct{ db *sql.DB }

func NewAccountRepositoryMSSQL(db *sql.DB) repository.IAccountService {
	return &AccountRepositoryMSSQL{db: db}
}

func (r *AccountRepositoryMSSQL) EnsureAccount(ctx context.Context, acc repository.NewAccount) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM platform_accounts WHERE user_id = @p1 AND platform = @p2 AND uid = @p3`,
		acc.UserID, acc.Platform, acc.UID,
	).Scan(&id)
	if err == nil {
		now := time.Now().UTC()
		_, err = r.db.ExecContext(ctx,
			`UPDATE platform_accounts SET nickname = @p1, avatar = @p2, updated_at = @p3 WHERE id = @p4`,
			acc.Nickname, acc.Avatar, now, id,
		)
		return id, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = newAccountID()
	now := time.Now().UTC()
	q := `MERGE platform_accounts AS target
	USING (SELECT @p1 AS id, @p2 AS user_id, @p3 AS platform, @p4 AS uid) AS source
	ON target.user_id = source.user_id AND target.platform = source.platform AND target.uid = source.uid
	WHEN MATCHED THEN UPDATE SET nickname = @p5, avatar = @p6, updated_at = @p7
	WHEN NOT MATCHED THEN INSERT (id, user_id, platform, uid, nickname, avatar, created_at, updated_at)
	VALUES (source.id, source.user_id, source.platform, source.uid, @p5, @p6, @p7, @p7);`
	if _, err := r.db.ExecContext(ctx, q, id, acc.UserID, acc.Platform, acc.UID, acc.Nickname, acc.Avatar, now); err != nil {
		return "", err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT id FROM platform_accounts WHERE user_id = @p1 AND platform = @p2 AND uid = @p3`,
		acc.UserID, acc.Platform, acc.UID,
	).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
