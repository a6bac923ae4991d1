package locker_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/featurepulse/featurepulse/pkg/locker"
)

func TestAcquire_SamePathSameMutex(t *testing.T) {
	l := locker.New()

	a := l.Acquire("/work/repo-a")
	b := l.Acquire("/work/repo-a")
	assert.Same(t, a, b)

	other := l.Acquire("/work/repo-b")
	assert.NotSame(t, a, other)
}

func TestAcquire_ConcurrentCallersOneMutex(t *testing.T) {
	l := locker.New()

	const goroutines = 32

	mutexes := make([]*sync.Mutex, goroutines)

	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			mutexes[i] = l.Acquire("/work/shared")
		}(i)
	}

	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, mutexes[0], mutexes[i])
	}
}

func TestAcquire_GuardsCriticalSection(t *testing.T) {
	l := locker.New()

	counter := 0

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			mu := l.Acquire("/work/repo")
			mu.Lock()
			defer mu.Unlock()

			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, 16, counter)
}
