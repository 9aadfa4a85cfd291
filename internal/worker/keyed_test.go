package worker

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()
	k := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("100000001")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	if counter != 64 {
		t.Fatalf("counter=%d want 64", counter)
	}
	if n := k.len(); n != 0 {
		t.Fatalf("entries left=%d", n)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()
	k := NewKeyedMutex()

	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	if n := k.len(); n != 2 {
		t.Fatalf("entries=%d want 2", n)
	}
	unlockB()
	unlockA()
	unlockA()
	if n := k.len(); n != 0 {
		t.Fatalf("entries left=%d", n)
	}
}
