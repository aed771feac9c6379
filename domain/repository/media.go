package repository

import (
	"context"

	"crosspost/domain/model"
)

// IMediaContainer is the durable store for async ingestion containers.
type IMediaContainer interface {
	// Create inserts a new container in Created state. Creation is refused
	// when one already exists for the same (publishTaskId, platform).
	Create(ctx context.Context, c *model.MediaContainer) error
	GetByTask(ctx context.Context, publishTaskID string, platform model.Platform) (*model.MediaContainer, error)
	// Transition advances the container only along the one-directional
	// lifecycle; returns false when the stored status does not allow it.
	Transition(ctx context.Context, id int64, from, to model.MediaContainerStatus, errorMsg *string) (bool, error)
}

// IMediaStorage is the object-storage collaborator behind the chunked upload
// protocol. Final media bytes live outside this core.
type IMediaStorage interface {
	InitMultipartUpload(ctx context.Context, fileName, path string, size int64, contentType string) (*model.UploadSession, error)
	UploadPart(ctx context.Context, session *model.UploadSession, partNumber int, blob []byte) (*model.UploadPart, error)
	CompleteUpload(ctx context.Context, session *model.UploadSession, parts []model.UploadPart) (string, error)
}
