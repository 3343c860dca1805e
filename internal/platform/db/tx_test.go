package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestNotFound_MapsNoRows(t *testing.T) {
	if !errors.Is(NotFound(pgx.ErrNoRows), ErrNotFound) {
		t.Error("expected pgx.ErrNoRows to map to ErrNotFound")
	}
	other := errors.New("boom")
	if NotFound(other) != other {
		t.Error("expected other errors to pass through")
	}
	if NotFound(nil) != nil {
		t.Error("expected nil to stay nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_idx"})

	if !IsUniqueViolation(err, "") {
		t.Error("expected unique violation with any constraint")
	}
	if !IsUniqueViolation(err, "appointments_active_slot_idx") {
		t.Error("expected unique violation on named index")
	}
	if IsUniqueViolation(err, "users_email_key") {
		t.Error("expected mismatch on other constraint")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Error("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("x"), "") {
		t.Error("plain error is not a unique violation")
	}
}

func TestTxFromContext_Empty(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected no transaction on a bare context")
	}
}
