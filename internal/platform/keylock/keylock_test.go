package keylock

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLockSerializesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	locker := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("event-1")
			defer unlock()
			current := counter
			time.Sleep(time.Microsecond)
			counter = current + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
	if locker.Len() != 0 {
		t.Fatalf("expected released entries to be dropped, got %d", locker.Len())
	}
}

func TestLockDistinctKeysDoNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	locker := New()
	unlockA := locker.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	locker := New()
	unlock := locker.Lock("a")
	unlock()
	unlock()

	relock := locker.Lock("a")
	defer relock()
	if locker.Len() != 1 {
		t.Fatalf("expected one held key, got %d", locker.Len())
	}
}
