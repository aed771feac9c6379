package dto

import (
	"errors"
	"time"

	"crosspost/domain/model"
)

// CreatePublishTaskRequest is the authoring-flow request to schedule a publish.
type CreatePublishTaskRequest struct {
	AccountID   string   `json:"account_id"`
	Platform    string   `json:"platform"`
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	VideoURL    string   `json:"video_url,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	// PublishTime is RFC3339; zero or past times publish immediately.
	PublishTime time.Time `json:"publish_time"`
}

// Validate checks the request at the system boundary, before any
// orchestration logic runs.
func (r *CreatePublishTaskRequest) Validate() error {
	if r.AccountID == "" {
		return errors.New("account_id required")
	}
	if !model.Platform(r.Platform).Valid() {
		return errors.New("unsupported platform: " + r.Platform)
	}
	switch model.PublishKind(r.Kind) {
	case model.PublishKindVideo:
		if r.VideoURL == "" {
			return errors.New("video_url required for video tasks")
		}
	case model.PublishKindArticle:
		if r.Title == "" {
			return errors.New("title required for article tasks")
		}
	case model.PublishKindImageSet:
		if len(r.ImageURLs) == 0 {
			return errors.New("image_urls required for image_set tasks")
		}
	default:
		return errors.New("unsupported kind: " + r.Kind)
	}
	return nil
}

// UpdatePublishTimeRequest re-schedules a waiting task.
type UpdatePublishTimeRequest struct {
	PublishTime time.Time `json:"publish_time"`
}

func (r *UpdatePublishTimeRequest) Validate() error {
	if r.PublishTime.IsZero() {
		return errors.New("publish_time required")
	}
	return nil
}

// PublishTaskResponse is the task view returned to front-ends.
type PublishTaskResponse struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Platform    string    `json:"platform"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	PublishTime time.Time `json:"publish_time"`
	Status      string    `json:"status"`
	WorkLink    string    `json:"work_link,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
}

// NewPublishTaskResponse flattens a task for the HTTP surface.
func NewPublishTaskResponse(t *model.PublishTask) PublishTaskResponse {
	resp := PublishTaskResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Platform:    string(t.Platform),
		Kind:        string(t.Kind),
		Title:       t.Title,
		PublishTime: t.PublishTime,
		Status:      string(t.Status),
	}
	if t.WorkLink != nil {
		resp.WorkLink = *t.WorkLink
	}
	if t.ErrorMsg != nil {
		resp.ErrorMsg = *t.ErrorMsg
	}
	return resp
}
