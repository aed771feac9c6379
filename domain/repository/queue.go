package repository

import (
	"context"

	"crosspost/domain/model"
)

// IJobQueue is the durable broker transport for job envelopes. Enqueue is
// deduplicated on the envelope's job id; a second enqueue for the same id is
// a no-op reported via the bool.
type IJobQueue interface {
	EnqueuePublish(ctx context.Context, job model.PublishJob) (bool, error)
	EnqueueMedia(ctx context.Context, job model.MediaJob) (bool, error)
	// ClearDedupe releases the dedupe marker for a job id so a cancelled or
	// re-scheduled task can be enqueued again later.
	ClearDedupe(ctx context.Context, jobID string) error
}
