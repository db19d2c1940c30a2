package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(WriteFailed, "transition", errors.New("503"))
	wrapped := fmt.Errorf("move: %w", err)

	if !errors.Is(wrapped, ErrWriteFailed) {
		t.Error("Expected wrapped error to match ErrWriteFailed")
	}
	if errors.Is(wrapped, ErrEditRejected) {
		t.Error("Did not expect match on ErrEditRejected")
	}
	if KindOf(wrapped) != WriteFailed {
		t.Errorf("Expected WriteFailed, got %s", KindOf(wrapped))
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(SourceUnavailable, "refresh", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected cause to be reachable")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(WriteFailed, "transition", errors.New("API error (500): boom"))); got != "Failed to update task." {
		t.Errorf("Expected generic message, got %q", got)
	}
	if got := UserMessage(Rejected("transition", "day %q is not today", "Mon 13-Jan")); got != `day "Mon 13-Jan" is not today` {
		t.Errorf("Unexpected rejection message %q", got)
	}
	transport := New(SourceUnavailable, "refresh", errors.New("API request failed: dial tcp 127.0.0.1:7466: connect: connection refused"))
	if got := UserMessage(transport); got != "Backend error: failed to fetch data" {
		t.Errorf("Expected generic backend message, got %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("Expected empty message, got %q", got)
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("Expected unclassified error")
	}
}
