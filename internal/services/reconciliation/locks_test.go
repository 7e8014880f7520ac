package reconciliation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceLocksMutualExclusion(t *testing.T) {
	locks := newReferenceLocks()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire("SO042")
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "only one holder per reference at a time")
}

func TestReferenceLocksIndependentReferences(t *testing.T) {
	locks := newReferenceLocks()

	releaseA := locks.Acquire("SO1")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := locks.Acquire("SO2")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent references must not contend")
	}
}

func TestReferenceLocksCleanup(t *testing.T) {
	locks := newReferenceLocks()

	release := locks.Acquire("SO042")
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "released entries are removed from the table")
}
