package domain

import "errors"

// Sentinel errors used throughout the application.
// Callers wrap them with context and match with errors.Is.
var (
	ErrUnexpectedSignature = errors.New("unexpected notification signature")
	ErrQueueClosed         = errors.New("packet queue is closed")
	ErrBusClosed           = errors.New("bus connection closed")
)
