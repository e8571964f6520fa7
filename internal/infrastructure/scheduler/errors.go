package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrRefreshFailed is returned by RunOnce when at least one refresh failed
	ErrRefreshFailed = errors.New("token refresh failed for some credentials")
)
