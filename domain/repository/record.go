package repository

import (
	"context"

	"crosspost/domain/model"
)

// IPublishRecord is the append-only archive of published works.
type IPublishRecord interface {
	Insert(ctx context.Context, rec *model.PublishRecord) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.PublishRecord, error)
}
