// Package sequence provides the domain contract for invoice number allocation.
package sequence

import (
	"context"
	"sync"
)

// MockAllocator is a test implementation of Allocator.
// Use in unit tests to avoid database dependencies.
//
// Unless overridden via AllocateFunc, it hands out sequential numbers from an
// in-memory counter, which is safe for concurrent use.
type MockAllocator struct {
	AllocateFunc func(ctx context.Context) (Allocation, error)

	Prefix string
	Suffix string

	mu   sync.Mutex
	next uint64
}

// NewMockAllocator creates a mock starting at 1 with the given prefix/suffix.
func NewMockAllocator(prefix, suffix string) *MockAllocator {
	return &MockAllocator{Prefix: prefix, Suffix: suffix, next: 1}
}

// Allocate implements Allocator.
func (m *MockAllocator) Allocate(ctx context.Context) (Allocation, error) {
	if m.AllocateFunc != nil {
		return m.AllocateFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next == 0 {
		m.next = 1
	}
	n := m.next
	m.next++
	return Allocation{Number: n, Prefix: m.Prefix, Suffix: m.Suffix}, nil
}

// Init implements Allocator.
func (m *MockAllocator) Init(ctx context.Context, prefix, suffix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next == 0 {
		m.next = 1
		m.Prefix = prefix
		m.Suffix = suffix
	}
	return nil
}

// Current implements Allocator.
func (m *MockAllocator) Current(ctx context.Context) (uint64, string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next, m.Prefix, m.Suffix, nil
}

// NextNumber reports the counter value without consuming it (test helper).
func (m *MockAllocator) NextNumber() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// Ensure compile-time interface compliance.
var _ Allocator = (*MockAllocator)(nil)
