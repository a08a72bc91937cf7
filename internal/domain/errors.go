package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrLockHeld       = errors.New("lock already held")
	ErrUnknownSource  = errors.New("unknown source")
	ErrSourceDisabled = errors.New("source disabled")
	ErrInvalidRequest = errors.New("invalid request")
)

// SourceError reports an upstream failure of a single exchange: transport,
// HTTP status, envelope or payload problems.
type SourceError struct {
	Source SourceID
	Op     string
	Msg    string
	Err    error
}

func (e *SourceError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Source, e.Op, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Source, msg)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ConfigurationError is returned when a caller names a source that is
// unknown or switched off.
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %q: %v", e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }
