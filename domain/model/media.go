package model

import (
	"errors"
	"time"
)

// MediaContainerStatus is the state of an asynchronous ingestion container.
type MediaContainerStatus string

const (
	MediaContainerCreated    MediaContainerStatus = "created"
	MediaContainerInProgress MediaContainerStatus = "in_progress"
	MediaContainerFinished   MediaContainerStatus = "finished"
	MediaContainerFailed     MediaContainerStatus = "failed"
)

// Terminal reports whether the container can no longer change state.
func (s MediaContainerStatus) Terminal() bool {
	return s == MediaContainerFinished || s == MediaContainerFailed
}

// CanTransitionTo enforces the one-directional container lifecycle.
func (s MediaContainerStatus) CanTransitionTo(next MediaContainerStatus) bool {
	switch s {
	case MediaContainerCreated:
		return next == MediaContainerInProgress || next == MediaContainerFinished || next == MediaContainerFailed
	case MediaContainerInProgress:
		return next == MediaContainerFinished || next == MediaContainerFailed
	default:
		return false
	}
}

// MediaContainer tracks a provider-side asynchronous media ingestion job for
// one publish task. At most one container exists per (publishTaskId, platform).
type MediaContainer struct {
	ID            int64                `json:"id"`
	PublishTaskID string               `json:"publish_task_id"`
	UserID        string               `json:"user_id"`
	AccountID     string               `json:"account_id"`
	Platform      Platform             `json:"platform"`
	ProviderRef   string               `json:"provider_ref"`
	Status        MediaContainerStatus `json:"status"`
	Option        *string              `json:"option,omitempty"`
	ErrorMsg      *string              `json:"error_msg,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// UploadPart is one completed chunk of a multipart upload.
type UploadPart struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// UploadSession identifies an in-flight chunked upload.
type UploadSession struct {
	FileID   string `json:"file_id"`
	UploadID string `json:"upload_id"`
}

var (
	ErrUploadNoParts       = errors.New("upload completion requires at least one part")
	ErrUploadPartGap       = errors.New("upload parts must be contiguous ascending part numbers starting at 1")
	ErrUploadDuplicatePart = errors.New("duplicate part number in upload completion")
	ErrUploadEmptyETag     = errors.New("upload part has empty etag")
)

// ValidateUploadParts checks that parts form a contiguous, ascending,
// duplicate-free sequence starting at 1 with non-empty etags. A gap or a
// duplicate fails locally, before the storage completion call.
func ValidateUploadParts(parts []UploadPart) error {
	if len(parts) == 0 {
		return ErrUploadNoParts
	}
	prev := 0
	for _, p := range parts {
		if p.ETag == "" {
			return ErrUploadEmptyETag
		}
		if p.PartNumber == prev {
			return ErrUploadDuplicatePart
		}
		if p.PartNumber != prev+1 {
			return ErrUploadPartGap
		}
		prev = p.PartNumber
	}
	return nil
}
