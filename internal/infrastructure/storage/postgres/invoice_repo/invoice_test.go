package invoice_repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{"default", "", "invoice_number DESC", false},
		{"ascending", "created_at", "created_at ASC", false},
		{"explicit ascending", "+due_date", "due_date ASC", false},
		{"descending", "-invoice_number", "invoice_number DESC", false},
		{"total", "total_cents", "total_cents ASC", false},
		{"unknown column", "password", "", true},
		{"injection attempt", "created_at; DROP TABLE invoices", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOrderBy(tt.orderBy)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseOrderBy(%q) should fail", tt.orderBy)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOrderBy(%q) failed: %v", tt.orderBy, err)
			}
			if got != tt.want {
				t.Errorf("parseOrderBy(%q) = %q, want %q", tt.orderBy, got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	orderConflict := &pgconn.PgError{Code: "23505", ConstraintName: orderUniqueConstraint}
	if !isUniqueViolation(orderConflict, orderUniqueConstraint) {
		t.Error("order_id conflict not recognized")
	}

	wrapped := fmt.Errorf("insert invoice: %w", orderConflict)
	if !isUniqueViolation(wrapped, orderUniqueConstraint) {
		t.Error("wrapped conflict not recognized")
	}

	otherConstraint := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_pkey"}
	if isUniqueViolation(otherConstraint, orderUniqueConstraint) {
		t.Error("other constraint must not match")
	}

	if isUniqueViolation(errors.New("connection reset"), orderUniqueConstraint) {
		t.Error("plain errors must not match")
	}
}
