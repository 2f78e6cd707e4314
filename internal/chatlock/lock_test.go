package chatlock

import (
	"sync"
	"testing"
	"time"
)

func TestRegistry_SerializesSameID(t *testing.T) {
	r := NewRegistry()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock("chat-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Errorf("Expected %d increments, got %d", goroutines, counter)
	}
}

func TestRegistry_IndependentIDs(t *testing.T) {
	r := NewRegistry()

	unlockA := r.Lock("chat-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := r.Lock("chat-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Lock on a different id blocked behind an unrelated chat")
	}
}

func TestRegistry_Reentry(t *testing.T) {
	r := NewRegistry()

	unlock := r.Lock("chat-1")
	unlock()

	// The same id can be taken again after release
	done := make(chan struct{})
	go func() {
		u := r.Lock("chat-1")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Lock was not released")
	}
}
