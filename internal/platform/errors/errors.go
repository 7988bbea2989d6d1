package apperrors

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrNoActiveSession     = errors.New("no active session")
	ErrActiveSessionExists = errors.New("active session already exists")
	ErrQuotaExceeded       = errors.New("storage quota exceeded")
	ErrMigrationFailed     = errors.New("migration failed")
	ErrUnsupportedVersion  = errors.New("unsupported version")
	ErrDestroyed           = errors.New("tracker destroyed")
)
