package sequence

import (
	"context"
	"sync"
	"testing"
)

func TestAllocationDisplay(t *testing.T) {
	tests := []struct {
		alloc Allocation
		want  string
	}{
		{Allocation{Number: 42, Prefix: "FAC-"}, "FAC-42"},
		{Allocation{Number: 7, Prefix: "INV-", Suffix: "/2026"}, "INV-7/2026"},
		{Allocation{Number: 1}, "1"},
	}

	for _, tt := range tests {
		if got := tt.alloc.Display(); got != tt.want {
			t.Errorf("Display() = %q, want %q", got, tt.want)
		}
	}
}

func TestMockAllocator_Sequential(t *testing.T) {
	m := NewMockAllocator("FAC-", "")
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		alloc, err := m.Allocate(ctx)
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if alloc.Number != want {
			t.Errorf("allocated %d, want %d", alloc.Number, want)
		}
	}
}

func TestMockAllocator_ConcurrentDistinct(t *testing.T) {
	m := NewMockAllocator("", "")
	ctx := context.Background()

	const callers = 50
	numbers := make([]uint64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			alloc, _ := m.Allocate(ctx)
			numbers[n] = alloc.Number
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, callers)
	for _, n := range numbers {
		if seen[n] {
			t.Fatalf("number %d handed out twice", n)
		}
		seen[n] = true
	}
}
