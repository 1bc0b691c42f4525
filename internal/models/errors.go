package models

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable  = errors.New("models: record store unavailable")
	ErrStoreWrite        = errors.New("models: record store write failed")
	ErrTripNotFound      = errors.New("models: trip not found")
	ErrMalformedSchedule = errors.New("models: malformed trip schedule")
	ErrMalformedRecord   = errors.New("models: malformed trip record")
	ErrSendFailed        = errors.New("models: chat send failed")
	ErrBridgeOffline     = errors.New("models: chat bridge not connected")
	ErrQueueFull         = errors.New("models: work queue full")
)

// RecordError describes a stored value rejected at the store boundary.
type RecordError struct {
	Row   string
	Field string
	Value string
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("row %s: field %s: invalid value %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e RecordError) Unwrap() error { return ErrMalformedRecord }
