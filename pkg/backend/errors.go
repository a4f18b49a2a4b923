package backend

import "errors"

var (
	ErrInvalidBaseURL   = errors.New("invalid backend URL")
	ErrRequestFailed    = errors.New("backend request failed")
	ErrUnexpectedStatus = errors.New("backend returned an error status")
	ErrDecodeResponse   = errors.New("failed to decode backend response")
	ErrCircuitOpen      = errors.New("backend circuit breaker is open")
)
