package dto

import (
	"errors"

	"crosspost/domain/model"
)

// GenerateAuthURLRequest starts a consent flow for one platform.
type GenerateAuthURLRequest struct {
	Platform string   `json:"platform"`
	SpaceID  string   `json:"space_id,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	FlowType string   `json:"flow_type,omitempty"` // h5 | pc
}

func (r *GenerateAuthURLRequest) Validate() error {
	if !model.Platform(r.Platform).Valid() {
		return errors.New("unsupported platform: " + r.Platform)
	}
	switch model.AuthFlowType(r.FlowType) {
	case "", model.AuthFlowH5, model.AuthFlowPC:
	default:
		return errors.New("flow_type must be h5 or pc")
	}
	return nil
}

// GenerateAuthURLResponse carries the consent URL plus the task id the client
// polls afterwards.
type GenerateAuthURLResponse struct {
	TaskID string `json:"task_id"`
	URL    string `json:"url"`
}

// AuthInfoResponse is the polling view of an OAuth task.
type AuthInfoResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	AccountID string `json:"account_id,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// FinalizeAccountRequest binds a resolved consent flow to an account record.
type FinalizeAccountRequest struct {
	TaskID string `json:"task_id"`
}

func (r *FinalizeAccountRequest) Validate() error {
	if r.TaskID == "" {
		return errors.New("task_id required")
	}
	return nil
}
