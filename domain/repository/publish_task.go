package repository

import (
	"context"
	"time"

	"crosspost/domain/model"
)

// IPublishTask is the durable store for publish tasks.
type IPublishTask interface {
	Create(ctx context.Context, task *model.PublishTask) error
	GetByID(ctx context.Context, id string) (*model.PublishTask, error)
	// ListDue returns tasks still waiting, not yet handed to the dispatcher,
	// whose publish time falls inside [start, end].
	ListDue(ctx context.Context, start, end time.Time) ([]*model.PublishTask, error)
	// UpdateStatusIf transitions id from one status to another only when the
	// stored status still matches. Returns false when another writer won.
	UpdateStatusIf(ctx context.Context, id string, from, to model.PublishStatus) (bool, error)
	// MarkInQueue flags a task as handed to the dispatcher so the periodic
	// scan skips it. Clear=false resets the flag on rollback/re-schedule.
	MarkInQueue(ctx context.Context, id string, inQueue bool) error
	UpdateSuccess(ctx context.Context, id, workLink, resultData string) error
	UpdateFailure(ctx context.Context, id string, status model.PublishStatus, errorMsg string) error
	UpdatePublishTime(ctx context.Context, id, userID string, publishTime time.Time) error
	Delete(ctx context.Context, id, userID string) error
}
