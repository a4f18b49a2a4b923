package provision

import "errors"

var (
	ErrGrantNotFound     = errors.New("access grant not found")
	ErrInvalidCompletion = errors.New("completion is missing customer, subscription or plan")
	ErrSaveGrant         = errors.New("failed to save access grant")
	ErrLoadGrant         = errors.New("failed to load access grant")
)
