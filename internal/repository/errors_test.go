package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestSeatConflictErrorMessage(t *testing.T) {
	err := &SeatConflictError{Seats: []uint32{1, 2, 14}}
	want := "seats already booked: 1, 2, 14"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var conflict *SeatConflictError
	wrapped := fmt.Errorf("claim failed: %w", err)
	if !errors.As(wrapped, &conflict) {
		t.Error("SeatConflictError not recoverable through wrapping")
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !isDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}) {
		t.Error("1062 not recognized as duplicate key")
	}
	if isDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock"}) {
		t.Error("1213 misclassified as duplicate key")
	}
	if isDuplicateKey(errors.New("plain error")) {
		t.Error("non-mysql error misclassified")
	}
}

func TestDedupeSeats(t *testing.T) {
	// Zero must survive deduplication so the seat map check can reject
	// it instead of it silently vanishing from the request.
	got := dedupeSeats([]uint32{5, 1, 5, 0, 3, 1})
	want := []uint32{0, 1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("dedupeSeats = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dedupeSeats = %v, want %v", got, want)
		}
	}
}

func TestConflictSet(t *testing.T) {
	got := conflictSet([]uint32{2}, []uint32{1, 2, 3})
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("conflictSet = %v, want the recovered seats [2]", got)
	}
	got = conflictSet(nil, []uint32{1, 2, 3})
	if len(got) != 3 {
		t.Errorf("conflictSet = %v, want fallback to the full request", got)
	}
}
