package model

import "time"

// OAuthTaskStatus is the state of an in-flight consent flow.
type OAuthTaskStatus string

const (
	OAuthTaskPending OAuthTaskStatus = "pending"
	OAuthTaskSuccess OAuthTaskStatus = "success"
	OAuthTaskFail    OAuthTaskStatus = "fail"
	OAuthTaskExpired OAuthTaskStatus = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s OAuthTaskStatus) Terminal() bool {
	return s == OAuthTaskSuccess || s == OAuthTaskFail || s == OAuthTaskExpired
}

// OAuthTask is the ephemeral, TTL-backed record of one consent flow. The task
// id doubles as the OAuth state parameter. Lives in the shared short-lived
// store, never in the database.
type OAuthTask struct {
	TaskID       string          `json:"task_id"`
	Platform     Platform        `json:"platform"`
	UserID       string          `json:"user_id"`
	SpaceID      string          `json:"space_id,omitempty"`
	FlowType     AuthFlowType    `json:"flow_type,omitempty"`
	PKCEVerifier string          `json:"pkce_verifier,omitempty"`
	Status       OAuthTaskStatus `json:"status"`
	AccountID    string          `json:"account_id,omitempty"`
	ErrorMsg     string          `json:"error_msg,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

const (
	// OAuthTaskTTL is how long a pending consent flow stays observable.
	OAuthTaskTTL = 5 * time.Minute
	// OAuthTaskExtendTTL is added once a terminal result is written so a
	// polling client has time to observe it.
	OAuthTaskExtendTTL = 3 * time.Minute
)
