package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePublishSchema creates the publishing tables when missing. Safe to
// call at startup.
func EnsurePublishSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ddls := []string{
		`CREATE TABLE IF NOT EXISTS publish_tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			image_urls TEXT NOT NULL DEFAULT '[]',
			cover_url TEXT NOT NULL DEFAULT '',
			publish_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			queue_id TEXT NOT NULL,
			in_queue BOOLEAN NOT NULL DEFAULT FALSE,
			work_link TEXT,
			result_data TEXT,
			error_msg TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_tasks_due ON publish_tasks (status, in_queue, publish_time)`,
		`CREATE TABLE IF NOT EXISTS oauth_credentials (
			id BIGSERIAL PRIMARY KEY,
			account_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			access_token_expires_at TIMESTAMPTZ NOT NULL,
			refresh_token_expires_at TIMESTAMPTZ,
			scopes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'normal',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (account_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS media_containers (
			id BIGSERIAL PRIMARY KEY,
			publish_task_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			provider_ref TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			option TEXT,
			error_msg TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (publish_task_id, platform)
		)`,
	}
	for _, ddl := range ddls {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensuring publish schema: %w", err)
		}
	}
	return nil
}
