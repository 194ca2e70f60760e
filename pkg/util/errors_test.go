package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPreconditionErrorWrapping(t *testing.T) {
	err := NewPreconditionError("migrate", "hv-03", "rename count must match eligible switch count", "2 renames for 1 eligible switches")
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Error("precondition error does not unwrap to the sentinel")
	}
	msg := err.Error()
	if !strings.Contains(msg, "migrate") || !strings.Contains(msg, "hv-03") || !strings.Contains(msg, "2 renames") {
		t.Errorf("message lacks context: %s", msg)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("switch names and switch ids are mutually exclusive selectors")
	if !errors.Is(err, ErrValidationFailed) {
		t.Error("validation error does not unwrap to the sentinel")
	}
	if strings.Contains(err.Error(), "\n") {
		t.Errorf("single-message error should be one line: %q", err.Error())
	}

	multi := NewValidationError("first problem", "second problem")
	if !strings.Contains(multi.Error(), "first problem") || !strings.Contains(multi.Error(), "second problem") {
		t.Errorf("multi-message error lost messages: %q", multi.Error())
	}
}

func TestValidationBuilder(t *testing.T) {
	var b ValidationBuilder
	b.Add(true, "should not appear").
		Add(false, "condition failed").
		AddErrorf("value %d out of range", 42)

	if !b.HasErrors() {
		t.Fatal("builder should have errors")
	}
	err := b.Build()
	if err == nil {
		t.Fatal("Build returned nil with errors present")
	}
	if strings.Contains(err.Error(), "should not appear") {
		t.Error("passing condition recorded as an error")
	}
	if !strings.Contains(err.Error(), "value 42 out of range") {
		t.Errorf("formatted message lost: %q", err.Error())
	}

	var empty ValidationBuilder
	if empty.Build() != nil {
		t.Error("empty builder should build nil")
	}
}

func TestPlatformError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewPlatformError("Remove-VMSwitch", "ConvergedSwitch", cause)
	if !errors.Is(err, cause) {
		t.Error("platform error does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "Remove-VMSwitch ConvergedSwitch") {
		t.Errorf("message = %q", err.Error())
	}

	bare := NewPlatformError("Get-VMSwitch", "", cause)
	if strings.Contains(bare.Error(), "  ") {
		t.Errorf("empty target leaves double space: %q", bare.Error())
	}
}

func TestPlatformErrorClassifiesUnderSentinel(t *testing.T) {
	err := NewPlatformError("New-VMSwitch", "Converged", errors.New("exit status 1"))
	if !errors.Is(err, ErrPlatform) {
		t.Error("platform error does not classify as ErrPlatform")
	}
	wrapped := fmt.Errorf("rebuilding: %w", err)
	if !errors.Is(wrapped, ErrPlatform) {
		t.Error("classification lost through wrapping")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("platform error must not match unrelated sentinels")
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer context: %w", ErrDrainTimeout)
	if !errors.Is(wrapped, ErrDrainTimeout) {
		t.Error("sentinel lost through wrapping")
	}
	if errors.Is(wrapped, ErrDrainFailed) {
		t.Error("timeout must not match the generic drain failure")
	}
}
