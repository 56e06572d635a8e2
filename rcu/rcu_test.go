package rcu

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizeWithoutReaders(t *testing.T) {
	var d Domain
	d.Synchronize()
	d.Synchronize()
	assert.Equal(t, uint64(2), d.Periods())
	assert.Equal(t, int64(0), d.Readers())
}

func TestSynchronizeWaitsForReader(t *testing.T) {
	var d Domain
	tok := d.ReadLock()
	var done atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Synchronize()
		done.Store(true)
	}()
	time.Sleep(20 * time.Millisecond)
	require.False(t, done.Load(), "grace period ended while a reader was active")
	d.ReadUnlock(tok)
	wg.Wait()
	assert.True(t, done.Load())
}

func TestLateReaderDoesNotBlockSynchronize(t *testing.T) {
	var d Domain
	first := d.ReadLock()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Synchronize()
	}()
	// wait for the phase flip, then enter a new section
	for d.phase.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	late := d.ReadLock()
	d.ReadUnlock(first)
	wg.Wait()
	d.ReadUnlock(late)
	assert.Equal(t, uint64(1), d.Periods())
}

func TestNestedSections(t *testing.T) {
	var d Domain
	d.Read(func() {
		d.Read(func() {
			assert.Equal(t, int64(2), d.Readers())
		})
	})
	assert.Equal(t, int64(0), d.Readers())
	assert.Panics(t, func() { d.ReadUnlock(0) })
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	var d Domain
	var shared atomic.Pointer[int]
	v := 0
	shared.Store(&v)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				d.Read(func() {
					p := shared.Load()
					if *p < 0 {
						t.Errorf("reader observed a recycled object")
					}
				})
			}
		}()
	}
	for i := 1; i <= 50; i++ {
		n := i
		old := shared.Swap(&n)
		d.Synchronize()
		*old = -1
	}
	close(stop)
	wg.Wait()
}
