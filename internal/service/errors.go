package service

import "errors"

var (
	ErrSessionExpired = errors.New("quote session not found or expired")
	ErrEmptySessionID = errors.New("session id is required")
)
