package apperr

import (
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("send: %w", Invalid("content", "Message cannot be empty"))
	if !IsValidation(err) {
		t.Fatal("wrapped validation error not detected")
	}
	if got := Invalid("", "bad").Error(); got != "bad" {
		t.Fatalf("got %q", got)
	}
	if got := Invalid("quarter", "must be 1..4").Error(); got != "quarter: must be 1..4" {
		t.Fatalf("got %q", got)
	}
	if IsValidation(ErrNotFound) {
		t.Fatal("not found is not a validation error")
	}
}
