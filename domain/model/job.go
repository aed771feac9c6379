package model

// PublishJob is the queue envelope for one publish execution attempt.
type PublishJob struct {
	TaskID   string `json:"task_id"`
	Attempts int    `json:"attempts"`
	JobID    string `json:"job_id"`
	// TimeoutMs bounds the adapter call for this attempt.
	TimeoutMs int64 `json:"timeout_ms"`
	// NextAttemptAt is an epoch-millisecond earliest-execution time used for
	// backoff re-enqueues; zero means run as soon as received.
	NextAttemptAt int64 `json:"next_attempt_at,omitempty"`
}

// MediaJob is the queue envelope for one ingestion-container poll.
type MediaJob struct {
	TaskID        string `json:"task_id"`
	Attempts      int    `json:"attempts"`
	JobID         string `json:"job_id"`
	NextAttemptAt int64  `json:"next_attempt_at,omitempty"`
}
