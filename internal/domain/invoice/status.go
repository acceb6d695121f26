package invoice

import (
	"facturio/internal/core/apperror"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// transitions is the full set of permitted status changes.
// paid and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusSent, StatusCancelled},
	StatusSent:    {StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue: {StatusPaid, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Pending reports whether s counts as pending in reporting (draft or sent).
func (s Status) Pending() bool {
	return s == StatusDraft || s == StatusSent
}

// CanTransition reports whether from -> to is a permitted status change.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns INVALID_TRANSITION unless from -> to is permitted.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return apperror.NewValidation("unknown status").WithDetail("status", string(to))
	}
	if !CanTransition(from, to) {
		return apperror.NewInvalidTransition(string(from), string(to))
	}
	return nil
}
