package mpmc

import (
	"context"
	"fastrelay/internal/global"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestQueue_Concurrency(t *testing.T) {
	tests := []struct {
		name      string
		capacity  uint64
		producers int
		consumers int
		numOps    int
	}{
		{"SingleEach", 128, 1, 1, 1000},
		{"HighContention", 16, 8, 8, 1000},
		{"ManyProducersOneConsumer", 1024, 6, 1, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue, err := New[int]([]string{global.NSTest}, tt.capacity)
			if err != nil {
				t.Fatalf("expected no error in creating queue, but got '%v'", err)
			}

			total := tt.producers * tt.numOps
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var producers sync.WaitGroup
			for p := 0; p < tt.producers; p++ {
				producers.Add(1)
				go func(p int) {
					defer producers.Done()
					for j := 0; j < tt.numOps; j++ {
						for !queue.Push(p*tt.numOps+j, 1) {
							runtime.Gosched()
						}
					}
				}(p)
			}

			var mutex sync.Mutex
			seen := make(map[int]int, total)
			received := 0

			var consumers sync.WaitGroup
			for c := 0; c < tt.consumers; c++ {
				consumers.Add(1)
				go func() {
					defer consumers.Done()
					for {
						mutex.Lock()
						if received >= total {
							mutex.Unlock()
							return
						}
						mutex.Unlock()

						value, ok := queue.TryPop(ctx, nil)
						if !ok {
							if ctx.Err() != nil {
								return
							}
							runtime.Gosched()
							continue
						}
						mutex.Lock()
						seen[value]++
						received++
						mutex.Unlock()
					}
				}()
			}

			producers.Wait()
			consumers.Wait()

			if len(seen) != total {
				t.Fatalf("expected %d distinct values, got %d", total, len(seen))
			}
			for value, count := range seen {
				if count != 1 {
					t.Fatalf("value %d received %d times", value, count)
				}
			}
		})
	}
}
