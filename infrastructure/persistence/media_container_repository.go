package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

var (
	ErrContainerNotFound = errors.New("media container not found")
	ErrContainerExists   = repository.ErrContainerExists
)

type MediaContainerRepository struct{ db *sql.DB }

func NewMediaContainerRepository(db *sql.DB) repository.IMediaContainer {
	return &MediaContainerRepository{db: db}
}

func (r *MediaContainerRepository) Create(ctx context.Context, c *model.MediaContainer) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.MediaContainerCreated
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO media_containers (publish_task_id, user_id, account_id, platform, provider_ref, status, option, error_msg, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		c.PublishTaskID, c.UserID, c.AccountID, c.Platform, c.ProviderRef, c.Status,
		c.Option, c.ErrorMsg, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrContainerExists
	}
	return err
}

func (r *MediaContainerRepository) GetByTask(ctx context.Context, publishTaskID string, platform model.Platform) (*model.MediaContainer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, publish_task_id, user_id, account_id, platform, provider_ref, status, option, error_msg, created_at, updated_at
		 FROM media_containers WHERE publish_task_id=$1 AND platform=$2`, publishTaskID, platform)
	c := &model.MediaContainer{}
	var option, errorMsg sql.NullString
	if err := row.Scan(&c.ID, &c.PublishTaskID, &c.UserID, &c.AccountID, &c.Platform,
		&c.ProviderRef, &c.Status, &option, &errorMsg, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContainerNotFound
		}
		return nil, err
	}
	if option.Valid {
		v := option.String
		c.Option = &v
	}
	if errorMsg.Valid {
		v := errorMsg.String
		c.ErrorMsg = &v
	}
	return c, nil
}

// Transition moves the container forward only: the WHERE clause re-checks the
// stored status so a concurrent poller cannot revive a terminal container.
func (r *MediaContainerRepository) Transition(ctx context.Context, id int64, from, to model.MediaContainerStatus, errorMsg *string) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE media_containers SET status=$1, error_msg=$2, updated_at=$3 WHERE id=$4 AND status=$5`,
		to, errorMsg, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
