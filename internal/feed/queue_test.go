package feed

import (
	"sync"
	"testing"
)

func TestQueue_PushPurgeOrder(t *testing.T) {
	q := NewQueue[int](4)

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	got := q.Purge()
	if len(got) != 10 {
		t.Fatalf("len(Purge()) = %d, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("Purge()[%d] = %d, want %d", i, v, i)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if again := q.Purge(); again != nil {
		t.Errorf("second Purge() = %v, want nil", again)
	}
}

func TestQueue_WrappedRing(t *testing.T) {
	q := NewQueue[int](16)

	// Advance head and tail so the next pushes wrap around.
	for i := 0; i < 8; i++ {
		q.Push(i)
	}
	q.Purge()
	for i := 0; i < 8; i++ {
		q.Push(100 + i)
	}

	got := q.Purge()
	for i, v := range got {
		if v != 100+i {
			t.Fatalf("Purge()[%d] = %d, want %d", i, v, 100+i)
		}
	}
}

func TestQueue_GrowAt70Percent(t *testing.T) {
	q := NewQueue[int](10)
	for i := 0; i < 7; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}
	if stats.TotalPushed != 7 {
		t.Errorf("TotalPushed = %d, want 7", stats.TotalPushed)
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[string](2)
	q.Push("a")
	q.Close()

	if q.Push("b") {
		t.Error("Push after Close should return false")
	}
	if got := q.Purge(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Purge() after Close = %v, want [a]", got)
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := NewQueue[int](1)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				q.Push(i)
			}
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		total += len(q.Purge())
		select {
		case <-done:
			total += len(q.Purge())
			if total != 8000 {
				t.Errorf("purged %d items, want 8000", total)
			}
			return
		default:
		}
	}
}
