package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

// PublishTaskRepositoryMSSQL is the SQL Server twin used on the production
// path (Azure SQL).
type PublishTaskRepositoryMSSQL struct{ db *sql.DB }

func NewPublishTaskRepositoryMSSQL(db *sql.DB) repository.IPublishTask {
	return &PublishTaskRepositoryMSSQL{db: db}
}

// EnsurePublishSchemaMSSQL creates the publishing tables for SQL Server if
// they do not exist.
func EnsurePublishSchemaMSSQL(db *sql.DB) error {
	ddls := []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.publish_tasks') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[publish_tasks] (
        id NVARCHAR(64) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        account_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        kind NVARCHAR(32) NOT NULL,
        title NVARCHAR(MAX) NOT NULL,
        description NVARCHAR(MAX) NOT NULL,
        video_url NVARCHAR(MAX) NOT NULL,
        image_urls NVARCHAR(MAX) NOT NULL,
        cover_url NVARCHAR(MAX) NOT NULL,
        publish_time DATETIME2 NOT NULL,
        status NVARCHAR(32) NOT NULL,
        queue_id NVARCHAR(128) NOT NULL,
        in_queue BIT NOT NULL DEFAULT 0,
        work_link NVARCHAR(MAX) NULL,
        result_data NVARCHAR(MAX) NULL,
        error_msg NVARCHAR(MAX) NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_publish_tasks_due ON dbo.[publish_tasks](status, in_queue, publish_time);
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.oauth_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[oauth_credentials] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        account_id NVARCHAR(128) NOT NULL,
        user_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NOT NULL,
        access_token_expires_at DATETIME2 NOT NULL,
        refresh_token_expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        status NVARCHAR(32) NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_oauth_credentials_account_platform ON dbo.[oauth_credentials](account_id, platform);
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.media_containers') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[media_containers] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        publish_task_id NVARCHAR(64) NOT NULL,
        user_id NVARCHAR(128) NOT NULL,
        account_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        provider_ref NVARCHAR(256) NOT NULL DEFAULT '',
        status NVARCHAR(32) NOT NULL,
        [option] NVARCHAR(MAX) NULL,
        error_msg NVARCHAR(MAX) NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_media_containers_task_platform ON dbo.[media_containers](publish_task_id, platform);
END`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create publish schema (mssql): %w", err)
		}
	}
	return nil
}

func (r *PublishTaskRepositoryMSSQL) Create(ctx context.Context, t *model.PublishTask) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	imgs, err := json.Marshal(t.ImageURLs)
	if err != nil {
		return err
	}
	q := `INSERT INTO publish_tasks (` + publishTaskColumns + `)
		  VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14,@p15,@p16,@p17,@p18,@p19)`
	_, err = r.db.ExecContext(ctx, q,
		t.ID, t.UserID, t.AccountID, string(t.Platform), string(t.Kind), t.Title, t.Description,
		t.VideoURL, string(imgs), t.CoverURL, t.PublishTime, string(t.Status), t.QueueID,
		t.InQueue, t.WorkLink, t.ResultData, t.ErrorMsg, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PublishTaskRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.PublishTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+publishTaskColumns+` FROM publish_tasks WHERE id=@p1`, id)
	t, err := scanPublishTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (r *PublishTaskRepositoryMSSQL) ListDue(ctx context.Context, start, end time.Time) ([]*model.PublishTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+publishTaskColumns+` FROM publish_tasks
		 WHERE status=@p1 AND in_queue=0 AND publish_time BETWEEN @p2 AND @p3
		 ORDER BY publish_time ASC`,
		string(model.PublishStatusWaiting), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PublishTask
	for rows.Next() {
		t, err := scanPublishTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PublishTaskRepositoryMSSQL) UpdateStatusIf(ctx context.Context, id string, from, to model.PublishStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET status=@p1, updated_at=@p2 WHERE id=@p3 AND status=@p4`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PublishTaskRepositoryMSSQL) MarkInQueue(ctx context.Context, id string, inQueue bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET in_queue=@p1, updated_at=@p2 WHERE id=@p3`,
		inQueue, time.Now().UTC(), id)
	return err
}

func (r *PublishTaskRepositoryMSSQL) UpdateSuccess(ctx context.Context, id, workLink, resultData string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET status=@p1, work_link=@p2, result_data=@p3, error_msg=NULL, updated_at=@p4 WHERE id=@p5`,
		string(model.PublishStatusPublished), workLink, resultData, time.Now().UTC(), id)
	return err
}

func (r *PublishTaskRepositoryMSSQL) UpdateFailure(ctx context.Context, id string, status model.PublishStatus, errorMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET status=@p1, error_msg=@p2, updated_at=@p3 WHERE id=@p4`,
		string(status), errorMsg, time.Now().UTC(), id)
	return err
}

func (r *PublishTaskRepositoryMSSQL) UpdatePublishTime(ctx context.Context, id, userID string, publishTime time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET publish_time=@p1, in_queue=0, updated_at=@p2 WHERE id=@p3 AND user_id=@p4`,
		publishTime, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrTaskNotFound
	}
	return err
}

func (r *PublishTaskRepositoryMSSQL) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM publish_tasks WHERE id=@p1 AND user_id=@p2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrTaskNotFound
	}
	return err
}
