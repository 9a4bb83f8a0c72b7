package services

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrAlreadyCompleted     = errors.New("task already completed")
	ErrMissingFoodReference = errors.New("meal references a missing food")
	// ErrMalformedSuggestionPayload is recovered inside the extractor and never returned to callers.
	ErrMalformedSuggestionPayload = errors.New("malformed suggestion payload")
	ErrInvalidInput               = errors.New("invalid input")
	ErrAssistantUnavailable       = errors.New("assistant unavailable")
)
