// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for classifying failures across the migration pipeline
var (
	ErrNotConnected       = errors.New("host not connected")
	ErrNotFound           = errors.New("resource not found")
	ErrPreconditionFailed = errors.New("precondition not met")
	ErrValidationFailed   = errors.New("validation failed")
	ErrDrainFailed        = errors.New("cluster node drain failed")
	ErrDrainTimeout       = errors.New("cluster node drain timed out")
	ErrPlatform           = errors.New("platform operation failed")
)

// PreconditionError represents a failed precondition check with context
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// PlatformError wraps a failed platform call with cmdlet-level context.
type PlatformError struct {
	Op     string // e.g. "Remove-VMSwitch", "New-NetIPAddress"
	Target string // switch/adapter/interface the call was aimed at
	Err    error
}

func (e *PlatformError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("platform: %s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("platform: %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// Is classifies every PlatformError under ErrPlatform while Unwrap keeps
// the transport cause reachable.
func (e *PlatformError) Is(target error) bool {
	return target == ErrPlatform
}

// NewPlatformError creates a platform error
func NewPlatformError(op, target string, err error) *PlatformError {
	return &PlatformError{Op: op, Target: target, Err: err}
}
