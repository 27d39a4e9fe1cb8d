package services

import "errors"

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStudentNotFound    = errors.New("student not found")
	ErrNotConnected       = errors.New("not connected")
	ErrDisconnected       = errors.New("conversation disconnected")
	ErrStorageUnavailable = errors.New("storage service is not configured")
)
