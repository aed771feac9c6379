package model

import "time"

// PublishStatus is the lifecycle state of a publish task.
type PublishStatus string

const (
	PublishStatusWaiting      PublishStatus = "waiting_for_publish"
	PublishStatusPublishing   PublishStatus = "publishing"
	PublishStatusPublished    PublishStatus = "published"
	PublishStatusFailed       PublishStatus = "failed"
	PublishStatusWaitUpdate   PublishStatus = "waiting_for_update"
	PublishStatusUpdating     PublishStatus = "updating"
	PublishStatusUpdateFailed PublishStatus = "update_failed"
)

// PublishKind is the content type of a publish task.
type PublishKind string

const (
	PublishKindVideo    PublishKind = "video"
	PublishKindArticle  PublishKind = "article"
	PublishKindImageSet PublishKind = "image_set"
)

// PublishTask is a scheduled publish of one piece of content to one platform
// account. Created by the authoring flow; mutated only by the scheduler
// (dispatch) and the queue workers (status transitions).
type PublishTask struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	AccountID   string        `json:"account_id"`
	Platform    Platform      `json:"platform"`
	Kind        PublishKind   `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	VideoURL    string        `json:"video_url,omitempty"`
	ImageURLs   []string      `json:"image_urls,omitempty"`
	CoverURL    string        `json:"cover_url,omitempty"`
	PublishTime time.Time     `json:"publish_time"`
	Status      PublishStatus `json:"status"`
	// QueueID is the job id used for queue dedupe, assigned once at creation.
	QueueID string `json:"queue_id"`
	// InQueue marks a task already handed to the dispatcher so the periodic
	// scan does not pick it up again.
	InQueue    bool      `json:"in_queue"`
	WorkLink   *string   `json:"work_link,omitempty"`
	ResultData *string   `json:"result_data,omitempty"`
	ErrorMsg   *string   `json:"error_msg,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PublishRecord is the append-only archive row written after a successful
// publish, kept in Mongo for dashboard/history reads.
type PublishRecord struct {
	TaskID      string    `json:"task_id"      bson:"taskId"`
	UserID      string    `json:"user_id"      bson:"userId"`
	AccountID   string    `json:"account_id"   bson:"accountId"`
	Platform    string    `json:"platform"     bson:"platform"`
	Kind        string    `json:"kind"         bson:"kind"`
	Title       string    `json:"title"        bson:"title"`
	WorkLink    string    `json:"work_link"    bson:"workLink"`
	ResultData  string    `json:"result_data"  bson:"resultData"`
	PublishedAt time.Time `json:"published_at" bson:"publishedAt"`
}
