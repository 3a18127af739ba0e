package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: payroll_periods.year"), true},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped record-not-found to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Fatal("expected unrelated error not to match")
	}
}
