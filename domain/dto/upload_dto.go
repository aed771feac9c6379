package dto

import (
	"errors"

	"crosspost/domain/model"
)

// InitUploadRequest opens a chunked upload session.
type InitUploadRequest struct {
	FileName    string `json:"file_name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

func (r *InitUploadRequest) Validate() error {
	if r.FileName == "" {
		return errors.New("file_name required")
	}
	if r.Size <= 0 {
		return errors.New("size must be positive")
	}
	return nil
}

// InitUploadResponse identifies the opened session.
type InitUploadResponse struct {
	FileID   string `json:"file_id"`
	UploadID string `json:"upload_id"`
}

// UploadPartResponse echoes the stored chunk's identity.
type UploadPartResponse struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// CompleteUploadRequest finishes a session with the full part list.
type CompleteUploadRequest struct {
	FileID   string             `json:"file_id"`
	UploadID string             `json:"upload_id"`
	Parts    []model.UploadPart `json:"parts"`
}

func (r *CompleteUploadRequest) Validate() error {
	if r.FileID == "" || r.UploadID == "" {
		return errors.New("file_id and upload_id required")
	}
	return model.ValidateUploadParts(r.Parts)
}
