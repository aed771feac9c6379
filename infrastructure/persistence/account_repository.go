package persistence

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/repository"
)

// EnsureAccountSchema creates the platform-account binding table when
// missing. Safe to call at startup.
func EnsureAccountSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ddl := `CREATE TABLE IF NOT EXISTS platform_accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		uid TEXT NOT NULL,
		nickname TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, platform, uid)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring account schema: %w", err)
	}
	return nil
}

// AccountRepository binds provider identities to local account ids. The same
// (userId, platform, uid) always resolves to the same account id, so a
// repeated consent flow re-binds instead of duplicating.
type AccountRepository struct{ db *sql.DB }

func NewAccountRepository(db *sql.DB) repository.IAccountService {
	return &AccountRepository{db: db}
}

func newAccountID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (r *AccountRepository) EnsureAccount(ctx context.Context, acc repository.NewAccount) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM platform_accounts WHERE user_id = $1 AND platform = $2 AND uid = $3`,
		acc.UserID, acc.Platform, acc.UID,
	).Scan(&id)
	if err == nil {
		now := time.Now().UTC()
		_, err = r.db.ExecContext(ctx,
			`UPDATE platform_accounts SET nickname = $1, avatar = $2, updated_at = $3 WHERE id = $4`,
			acc.Nickname, acc.Avatar, now, id,
		)
		return id, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = newAccountID()
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO platform_accounts (id, user_id, platform, uid, nickname, avatar, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, platform, uid) DO UPDATE SET nickname = EXCLUDED.nickname, avatar = EXCLUDED.avatar, updated_at = EXCLUDED.updated_at`,
		id, acc.UserID, acc.Platform, acc.UID, acc.Nickname, acc.Avatar, now, now,
	)
	if err != nil {
		return "", err
	}
	// The upsert may have kept a concurrently inserted row's id.
	if err := r.db.QueryRowContext(ctx,
		`SELECT id FROM platform_accounts WHERE user_id = $1 AND platform = $2 AND uid = $3`,
		acc.UserID, acc.Platform, acc.UID,
	).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
