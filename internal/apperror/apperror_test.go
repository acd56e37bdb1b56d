package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NotFound("snippet", "abc"), ErrNotFound},
		{"validation", ValidationFailed("name", "name is required"), ErrValidation},
		{"conflict", Conflict("a run is already in progress"), ErrConflict},
		{"forbidden", Forbidden("not your snippet"), ErrForbidden},
		{"unauthorized", Unauthorized("valid authentication required"), ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false, want true", tt.err)
			}

			// Services wrap with %w; the sentinel must still be findable.
			wrapped := fmt.Errorf("creating snippet: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped, sentinel) = false, want true")
			}

			// And the AppError itself must be extractable for the message.
			var appErr *AppError
			if !errors.As(wrapped, &appErr) {
				t.Fatal("errors.As failed to extract *AppError from wrapped chain")
			}
			if appErr.Message == "" {
				t.Error("AppError.Message is empty")
			}
		})
	}
}

func TestErrorReturnsMessage(t *testing.T) {
	err := NotFound("snippet", "abc123")
	want := "snippet not found with id abc123"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationFailedKeepsField(t *testing.T) {
	err := ValidationFailed("language", "language label too long")
	if err.Field != "language" {
		t.Errorf("Field = %q, want %q", err.Field, "language")
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	if errors.Is(NotFound("x", "1"), ErrValidation) {
		t.Error("NotFound matched ErrValidation")
	}
	if errors.Is(Conflict("busy"), ErrForbidden) {
		t.Error("Conflict matched ErrForbidden")
	}
}
