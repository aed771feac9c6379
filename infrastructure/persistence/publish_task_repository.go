package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

var ErrTaskNotFound = repository.ErrTaskNotFound

type PublishTaskRepository struct{ db *sql.DB }

func NewPublishTaskRepository(db *sql.DB) repository.IPublishTask {
	return &PublishTaskRepository{db: db}
}

const publishTaskColumns = `id, user_id, account_id, platform, kind, title, description, video_url, image_urls, cover_url, publish_time, status, queue_id, in_queue, work_link, result_data, error_msg, created_at, updated_at`

func (r *PublishTaskRepository) Create(ctx context.Context, t *model.PublishTask) error {
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
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	_, err = r.db.ExecContext(ctx, q,
		t.ID, t.UserID, t.AccountID, t.Platform, t.Kind, t.Title, t.Description,
		t.VideoURL, string(imgs), t.CoverURL, t.PublishTime, t.Status, t.QueueID,
		t.InQueue, t.WorkLink, t.ResultData, t.ErrorMsg, t.CreatedAt, t.UpdatedAt)
	return err
}

func scanPublishTask(scan func(dest ...any) error) (*model.PublishTask, error) {
	t := &model.PublishTask{}
	var imgs string
	var workLink, resultData, errorMsg sql.NullString
	if err := scan(&t.ID, &t.UserID, &t.AccountID, &t.Platform, &t.Kind, &t.Title,
		&t.Description, &t.VideoURL, &imgs, &t.CoverURL, &t.PublishTime, &t.Status,
		&t.QueueID, &t.InQueue, &workLink, &resultData, &errorMsg, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if imgs != "" {
		_ = json.Unmarshal([]byte(imgs), &t.ImageURLs)
	}
	if workLink.Valid {
		v := workLink.String
		t.WorkLink = &v
	}
	if resultData.Valid {
		v := resultData.String
		t.ResultData = &v
	}
	if errorMsg.Valid {
		v := errorMsg.String
		t.ErrorMsg = &v
	}
	return t, nil
}

func (r *PublishTaskRepository) GetByID(ctx context.Context, id string) (*model.PublishTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+publishTaskColumns+` FROM publish_tasks WHERE id=$1`, id)
	t, err := scanPublishTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (r *PublishTaskRepository) ListDue(ctx context.Context, start, end time.Time) ([]*model.PublishTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+publishTaskColumns+` FROM publish_tasks
		 WHERE status=$1 AND in_queue=FALSE AND publish_time BETWEEN $2 AND $3
		 ORDER BY publish_time ASC`,
		model.PublishStatusWaiting, start, end)
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

// UpdateStatusIf is the atomic conditional transition the dispatch path keys
// on; racing schedulers observe zero rows affected and skip.
func (r *PublishTaskRepository) UpdateStatusIf(ctx context.Context, id string, from, to model.PublishStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PublishTaskRepository) MarkInQueue(ctx context.Context, id string, inQueue bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET in_queue=$1, updated_at=$2 WHERE id=$3`,
		inQueue, time.Now().UTC(), id)
	return err
}

func (r *PublishTaskRepository) UpdateSuccess(ctx context.Context, id, workLink, resultData string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET status=$1, work_link=$2, result_data=$3, error_msg=NULL, updated_at=$4 WHERE id=$5`,
		model.PublishStatusPublished, workLink, resultData, time.Now().UTC(), id)
	return err
}

func (r *PublishTaskRepository) UpdateFailure(ctx context.Context, id string, status model.PublishStatus, errorMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET status=$1, error_msg=$2, updated_at=$3 WHERE id=$4`,
		status, errorMsg, time.Now().UTC(), id)
	return err
}

func (r *PublishTaskRepository) UpdatePublishTime(ctx context.Context, id, userID string, publishTime time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE publish_tasks SET publish_time=$1, in_queue=FALSE, updated_at=$2 WHERE id=$3 AND user_id=$4`,
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

func (r *PublishTaskRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM publish_tasks WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrTaskNotFound
	}
	return err
}
