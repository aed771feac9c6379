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

type MediaContainerRepositoryMSSQL struct{ db *sql.DB }

func NewMediaContainerRepositoryMSSQL(db *sql.DB) repository.IMediaContainer {
	return &MediaContainerRepositoryMSSQL{db: db}
}

func (r *MediaContainerRepositoryMSSQL) Create(ctx context.Context, c *model.MediaContainer) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.MediaContainerCreated
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO media_containers (publish_task_id, user_id, account_id, platform, provider_ref, status, [option], error_msg, created_at, updated_at)
		 OUTPUT INSERTED.id
		 VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)`,
		c.PublishTaskID, c.UserID, c.AccountID, c.Platform, c.ProviderRef, c.Status,
		c.Option, c.ErrorMsg, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil && (strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE KEY constraint")) {
		return ErrContainerExists
	}
	return err
}

func (r *MediaContainerRepositoryMSSQL) GetByTask(ctx context.Context, publishTaskID string, platform model.Platform) (*model.MediaContainer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, publish_task_id, user_id, account_id, platform, provider_ref, status, [option], error_msg, created_at, updated_at
		 FROM media_containers WHERE publish_task_id=@p1 AND platform=@p2`, publishTaskID, platform)
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

func (r *MediaContainerRepositoryMSSQL) Transition(ctx context.Context, id int64, from, to model.MediaContainerStatus, errorMsg *string) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE media_containers SET status=@p1, error_msg=@p2, updated_at=@p3 WHERE id=@p4 AND status=@p5`,
		to, errorMsg, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
