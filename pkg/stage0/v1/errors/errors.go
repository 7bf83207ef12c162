package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// --- stage0 Core Error Types ---

// ConfigError represents an error encountered while loading, parsing, or
// writing a persisted build configuration or the embedded option table.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that a configuration document or a value failed
// validation against its declared type or the document schema.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// OverrideError reports a command-line override that cannot be split into a
// key and value, or whose value does not fit the key's declared type.
// Configuration generation aborts on the first one.
type OverrideError struct {
	Arg    string // The raw argument as supplied, e.g. "llvm..x=1"
	Reason string
	Cause  error
}

func NewOverrideError(arg, reason string, cause error) *OverrideError {
	return &OverrideError{Arg: arg, Reason: reason, Cause: cause}
}
func (e *OverrideError) Error() string {
	msg := fmt.Sprintf("malformed override '%s': %s", e.Arg, e.Reason)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}
func (e *OverrideError) Unwrap() error { return e.Cause }

// IOError wraps a filesystem failure with the operation and path involved.
// The cause is always preserved, so errors.Is(err, fs.ErrNotExist) keeps
// working through it.
type IOError struct {
	Op    string // "read", "write", "open", "close", "stat"
	Path  string
	Cause error
}

func NewIOError(op, path string, cause error) *IOError {
	return &IOError{Op: op, Path: path, Cause: cause}
}
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}
func (e *IOError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err means the file does not exist. Permission
// and other I/O failures return false.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
