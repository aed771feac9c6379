package repository

import "errors"

var (
	ErrTaskNotFound       = errors.New("publish task not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrContainerExists    = errors.New("media container already exists for task and platform")
)
