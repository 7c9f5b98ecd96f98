package domain

import "errors"

var (
	// ErrInvalidInput is returned when caller-supplied input is missing or malformed
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyResponse is returned when the generator produced no text
	ErrEmptyResponse = errors.New("no valid response from AI")
	// ErrInvalidAIResponse is returned when the generator text is not parseable JSON
	ErrInvalidAIResponse = errors.New("invalid JSON response from AI")
	// ErrUnexpectedShape is returned when the parsed JSON has the wrong top-level type
	ErrUnexpectedShape = errors.New("unexpected JSON shape")
	// ErrGeneratorFailure is returned when the generative AI request fails
	ErrGeneratorFailure = errors.New("AI service request failed")
	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
	// ErrHistoryUnavailable is returned when the history store cannot be used
	ErrHistoryUnavailable = errors.New("history store unavailable")
	// ErrImageUnavailable is returned when an image cannot be read or decoded
	ErrImageUnavailable = errors.New("image unavailable")
)
