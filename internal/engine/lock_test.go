package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	ok, err := l.TryLock(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("first TryLock = %v, %v", ok, err)
	}
	if ok, _ := l.TryLock(ctx, "abc"); ok {
		t.Fatal("second TryLock on held id succeeded")
	}
	if ok, _ := l.TryLock(ctx, "other"); !ok {
		t.Fatal("TryLock on a different id failed")
	}
	if err := l.Unlock(ctx, "abc"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if ok, _ := l.TryLock(ctx, "abc"); !ok {
		t.Fatal("TryLock after Unlock failed")
	}
}

func TestMemoryLockerSingleWinner(t *testing.T) {
	l := NewMemoryLocker()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.TryLock(context.Background(), "same"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestNewLockerFallsBackToMemory(t *testing.T) {
	for _, u := range []string{"", "not a url"} {
		if _, ok := NewLocker(u, time.Minute).(*MemoryLocker); !ok {
			t.Errorf("NewLocker(%q) did not return a MemoryLocker", u)
		}
	}
}
