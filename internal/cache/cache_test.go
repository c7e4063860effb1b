package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Error("expected a to survive")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("expected 1 cleaned entry, got %d", n)
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("timeline:c1:2023", 1)
	c.Set("timeline:c1:2024", 2)
	c.Set("timeline:c10:2024", 3)

	if n := c.DeletePrefix("timeline:c1:"); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := c.Get("timeline:c10:2024"); !ok {
		t.Error("expected other client entry to survive")
	}
}

func TestLoadingSharesConcurrentLoads(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Minute))
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 42, nil
			})
			if err != nil || v != 42 {
				t.Errorf("unexpected result %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls > 5 || calls < 1 {
		t.Fatalf("unexpected loader calls %d", calls)
	}
	v, _ := l.Get(context.Background(), "k", func(context.Context) (int, error) {
		t.Error("loader should not run on a cached key")
		return 0, nil
	})
	if v != 42 {
		t.Errorf("expected cached 42, got %d", v)
	}
}

func TestLoadingDoesNotCacheErrors(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Minute))
	boom := errors.New("boom")
	if _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected reload to 7, got %d, %v", v, err)
	}
	if n := l.Invalidate("k"); n != 1 {
		t.Errorf("expected 1 invalidated entry, got %d", n)
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Minute))
	m.Stop()
	m.StartCleanup(time.Hour)
	m.Stop()
}
