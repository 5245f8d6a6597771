package store

import "errors"

var (
	ErrNotFound     = errors.New("receipt not found")
	ErrSaveFailed   = errors.New("failed to save receipt")
	ErrLoadFailed   = errors.New("failed to load receipts")
	ErrDeleteFailed = errors.New("failed to delete receipt")
)
