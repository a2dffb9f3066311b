package core

import "errors"

// Common errors.
var (
	ErrReadOnly          = errors.New("store is in read-only mode")
	ErrNotFound          = errors.New("record not found")
	ErrKeyExists         = errors.New("record key already exists")
	ErrEmptyKey          = errors.New("record key cannot be empty")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrOutOfScope        = errors.New("collection not declared in transaction scope")
	ErrTxClosed          = errors.New("transaction closed")
)

// ErrInvalidRecord is returned when a record fails validation before a write.
var ErrInvalidRecord = errors.New("invalid record")
