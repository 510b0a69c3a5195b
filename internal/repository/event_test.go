package repository

import (
	"testing"
)

func TestNewEventRepository(t *testing.T) {
	repo := NewEventRepository(nil)
	if repo == nil {
		t.Fatal("expected non-nil EventRepository")
	}
	if repo.db != nil {
		t.Fatal("expected nil db when constructed with nil")
	}
}

func TestEventSentinelErrors(t *testing.T) {
	if ErrEventNotFound.Error() != "event not found" {
		t.Fatalf("unexpected error message: %s", ErrEventNotFound.Error())
	}
	if ErrEventLocked.Error() != "event is locked by a pending swap" {
		t.Fatalf("unexpected error message: %s", ErrEventLocked.Error())
	}
}
