package mpmc

import (
	"context"
	"fastrelay/internal/global"
	"testing"
	"time"
)

func intPtr[T any](v T) *T { return &v }

func TestQueue_PushPopScenarios(t *testing.T) {
	type op struct {
		push *int // nil means pop
		want *int
		full bool // push expected to fail
	}

	tests := []struct {
		name     string
		capacity uint64
		ops      []op
	}{
		{
			name:     "SinglePushPop",
			capacity: 32,
			ops: []op{
				{push: intPtr(10)},
				{want: intPtr(10)},
			},
		},
		{
			name:     "FullRejects",
			capacity: 2,
			ops: []op{
				{push: intPtr(1)},
				{push: intPtr(2)},
				{push: intPtr(3), full: true},
				{want: intPtr(1)},
				{push: intPtr(4)},
				{want: intPtr(2)},
				{want: intPtr(4)},
			},
		},
		{
			name:     "DeepWrap",
			capacity: 4,
			ops: []op{
				{push: intPtr(0)},
				{push: intPtr(1)},
				{push: intPtr(2)},
				{push: intPtr(3)},
				{want: intPtr(0)},
				{want: intPtr(1)},
				{push: intPtr(100)},
				{push: intPtr(200)},
				{want: intPtr(2)},
				{want: intPtr(3)},
				{want: intPtr(100)},
				{want: intPtr(200)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New[int]([]string{global.NSTest}, tt.capacity)
			if err != nil {
				t.Fatalf("expected no error in creating queue, but got '%v'", err)
			}

			for i, op := range tt.ops {
				if op.push != nil {
					ok := q.Push(*op.push, 8)
					if ok == op.full {
						t.Fatalf("op %d: push(%d) returned %v", i, *op.push, ok)
					}
					continue
				}
				got, ok := q.TryPop(context.Background(), func(int) int { return 8 })
				if !ok {
					t.Fatalf("op %d: pop failed", i)
				}
				if got != *op.want {
					t.Fatalf("op %d: expected %d, got %d", i, *op.want, got)
				}
			}

			if q.Len() != 0 {
				t.Errorf("expected empty queue, depth %d", q.Len())
			}
			if q.Metrics.Bytes.Load() != 0 {
				t.Errorf("expected zero byte sum, got %d", q.Metrics.Bytes.Load())
			}
		})
	}
}

func TestQueue_New(t *testing.T) {
	tests := []struct {
		name     string
		capacity uint64
		wantErr  bool
	}{
		{"power of two", 8, false},
		{"minimum", 2, false},
		{"too small", 1, true},
		{"not power of two", 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New[int]([]string{global.NSTest}, tt.capacity)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err == nil {
				if q.Size != int(tt.capacity) {
					t.Errorf("expected size %d, got %d", tt.capacity, q.Size)
				}
				if q.Namespace[len(q.Namespace)-1] != global.NSQueue {
					t.Errorf("namespace missing queue component: %v", q.Namespace)
				}
			}
		})
	}
}

func TestQueue_TryPopEmpty(t *testing.T) {
	q, err := New[int](nil, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok := q.TryPop(context.Background(), nil)
	if ok {
		t.Errorf("pop on empty queue must fail")
	}
}

func TestQueue_PopWaitsAndCancels(t *testing.T) {
	q, err := New[string](nil, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push("late", 4)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, ok := q.Pop(ctx, nil)
	if !ok || got != "late" {
		t.Fatalf("expected blocked pop to receive value, got %q (%v)", got, ok)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	_, ok = q.Pop(cancelled, nil)
	if ok {
		t.Errorf("pop must fail on a cancelled context")
	}
}

func TestQueue_PushBlocking(t *testing.T) {
	q, err := New[int](nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q.Push(1, 1)
	q.Push(2, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if q.PushBlocking(ctx, 3, 1) {
		t.Errorf("push into full queue must give up when ctx ends")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.TryPop(context.Background(), nil)
	}()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	if !q.PushBlocking(ctx2, 3, 1) {
		t.Errorf("push must succeed once space frees up")
	}
}
