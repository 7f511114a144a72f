package services

import "errors"

var (
	ErrInvalidCredentials        = errors.New("invalid email or password")
	ErrDuplicateEmail            = errors.New("email already exists")
	ErrDuplicateUsername         = errors.New("username already exists")
	ErrAccountInactive           = errors.New("account is not active")
	ErrInvalidResetToken         = errors.New("invalid or expired reset token")
	ErrUserNotFound              = errors.New("user not found")
	ErrGoalNotFound              = errors.New("fitness goal not found")
	ErrLogNotFound               = errors.New("workout log not found")
	ErrRecommendationUnavailable = errors.New("recommendation service is not configured")
	ErrRecommendationFailed      = errors.New("recommendation service failed to respond")
)
