package domain

import "errors"

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("conflict")
	ErrEarningNotEscrowed   = errors.New("earning is not escrowed")
	ErrScanFailed           = errors.New("eligibility scan failed")
	ErrUnsupportedEventType = errors.New("unsupported event type")
)
