package repository

import (
	"errors"
	"testing"
)

func TestNewSwapRepository(t *testing.T) {
	repo := NewSwapRepository(nil)
	if repo == nil {
		t.Fatal("expected non-nil SwapRepository")
	}
	if repo.db != nil {
		t.Fatal("expected nil db when constructed with nil")
	}
}

func TestSwapSentinelErrors(t *testing.T) {
	if ErrSwapNotFound.Error() != "swap request not found" {
		t.Fatalf("unexpected error message: %s", ErrSwapNotFound.Error())
	}
	if ErrDuplicateSwap.Error() != "swap request already exists for this event pair" {
		t.Fatalf("unexpected error message: %s", ErrDuplicateSwap.Error())
	}
}

func TestIsContentionError(t *testing.T) {
	if isContentionError(nil) {
		t.Fatal("nil error should not be a contention error")
	}
	if isContentionError(ErrSwapNotFound) {
		t.Fatal("ErrSwapNotFound should not be a contention error")
	}
	if !isContentionError(errors.New("Error 1205: Lock wait timeout exceeded; try restarting transaction")) {
		t.Fatal("lock wait timeout should be a contention error")
	}
	if !isContentionError(errors.New("Error 1213: Deadlock found when trying to get lock; try restarting transaction")) {
		t.Fatal("deadlock should be a contention error")
	}
}
