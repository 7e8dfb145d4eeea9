package atomics

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSubtract(t *testing.T) {
	tests := []struct {
		name        string
		initial     uint64
		subtract    uint64
		maxRetries  int
		wantSuccess bool
		wantFinal   uint64
	}{
		{
			name:        "already zero",
			initial:     0,
			subtract:    5,
			maxRetries:  1,
			wantSuccess: true,
			wantFinal:   0,
		},
		{
			name:        "simple subtraction",
			initial:     10,
			subtract:    3,
			maxRetries:  3,
			wantSuccess: true,
			wantFinal:   7,
		},
		{
			name:        "subtract more than available",
			initial:     5,
			subtract:    10,
			maxRetries:  3,
			wantSuccess: true,
			wantFinal:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a atomic.Uint64
			a.Store(tt.initial)

			ok := Subtract(&a, tt.subtract, tt.maxRetries)
			if ok != tt.wantSuccess {
				t.Fatalf("expected success=%v, got %v", tt.wantSuccess, ok)
			}
			if final := a.Load(); final != tt.wantFinal {
				t.Fatalf("expected final=%d, got %d", tt.wantFinal, final)
			}
		})
	}
}

func TestStoreIfGreater(t *testing.T) {
	tests := []struct {
		name         string
		initial      int64
		candidate    int64
		wantStored   bool
		wantPrevious int64
		wantFinal    int64
	}{
		{
			name:         "newer value stored",
			initial:      900,
			candidate:    1000,
			wantStored:   true,
			wantPrevious: 900,
			wantFinal:    1000,
		},
		{
			name:         "equal value rejected",
			initial:      1000,
			candidate:    1000,
			wantStored:   false,
			wantPrevious: 1000,
			wantFinal:    1000,
		},
		{
			name:         "older value rejected",
			initial:      1000,
			candidate:    900,
			wantStored:   false,
			wantPrevious: 1000,
			wantFinal:    1000,
		},
		{
			name:         "negative baseline",
			initial:      -5,
			candidate:    0,
			wantStored:   true,
			wantPrevious: -5,
			wantFinal:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a atomic.Int64
			a.Store(tt.initial)

			previous, stored := StoreIfGreater(&a, tt.candidate)
			if stored != tt.wantStored {
				t.Fatalf("expected stored=%v, got %v", tt.wantStored, stored)
			}
			if previous != tt.wantPrevious {
				t.Fatalf("expected previous=%d, got %d", tt.wantPrevious, previous)
			}
			if final := a.Load(); final != tt.wantFinal {
				t.Fatalf("expected final=%d, got %d", tt.wantFinal, final)
			}
		})
	}
}

func TestStoreIfGreaterConcurrent(t *testing.T) {
	var a atomic.Int64
	var adopted atomic.Int64

	var wg sync.WaitGroup
	for i := int64(1); i <= 500; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			if _, stored := StoreIfGreater(&a, v); stored {
				adopted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := a.Load(); got != 500 {
		t.Fatalf("expected maximum 500 to win, got %d", got)
	}
	if adopted.Load() < 1 {
		t.Fatalf("expected at least one adoption")
	}
}
