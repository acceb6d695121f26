// Package sequence provides the domain contract for invoice number allocation.
// Implementations live in the infrastructure layer.
package sequence

import (
	"context"
	"fmt"
)

// Allocation is one consumed invoice number together with the prefix/suffix
// snapshot taken from the counter at allocation time.
//
// An allocation is permanent: the number is consumed even if the caller later
// fails to persist an invoice with it. Gaps from failed creations are an
// accepted trade-off; reused numbers are not.
type Allocation struct {
	Number uint64
	Prefix string
	Suffix string
}

// Display returns the human-facing invoice number, prefix + number + suffix.
func (a Allocation) Display() string {
	return fmt.Sprintf("%s%d%s", a.Prefix, a.Number, a.Suffix)
}

// Allocator hands out strictly sequential, gap-free invoice numbers from the
// singleton counter.
//
// Two concurrent Allocate calls must each receive a distinct, consecutive
// number; no number is handed out twice or skipped. Implementations must use
// a single atomic read-modify-write on the counter row, retried a bounded
// number of times on conflict before failing with ALLOCATION_CONFLICT.
type Allocator interface {
	// Allocate atomically advances the counter and returns the pre-increment
	// value with the prefix/suffix in effect at that instant.
	Allocate(ctx context.Context) (Allocation, error)

	// Init creates the counter row if it does not exist yet, starting at 1.
	// Idempotent: a second call is a no-op, never an error.
	Init(ctx context.Context, prefix, suffix string) error

	// Current reads the counter without advancing it (for diagnostics).
	Current(ctx context.Context) (next uint64, prefix, suffix string, err error)
}
