package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	n int
}

func TestAllocAndAt(t *testing.T) {
	a := New[item](0)
	handles := make([]Handle, 0, 200)
	for i := 0; i < 200; i++ {
		h, obj, ok := a.TryAlloc()
		require.True(t, ok)
		require.NotEqual(t, Nil, h)
		obj.n = i
		handles = append(handles, h)
	}
	assert.Equal(t, 200, a.Len())
	for i, h := range handles {
		assert.Equal(t, i, a.At(h).n)
	}
	assert.Nil(t, a.At(Nil))
	assert.Equal(t, 4, a.Stats().Chunks)
}

func TestFreeReusesHandles(t *testing.T) {
	a := New[item](0)
	h1, _, _ := a.TryAlloc()
	h2, _, _ := a.TryAlloc()
	require.NoError(t, a.Free(h1))
	assert.False(t, a.Live(h1))
	assert.True(t, a.Live(h2))
	h3, _, ok := a.TryAlloc()
	require.True(t, ok)
	assert.Equal(t, h1, h3)
	err := a.Free(Nil)
	assert.True(t, errors.Is(err, ErrInvalidHandle))
	require.NoError(t, a.Free(h3))
	assert.True(t, errors.Is(a.Free(h3), ErrInvalidHandle))
}

func TestBudgetRefusesWithoutBlocking(t *testing.T) {
	a := New[item](2)
	_, _, ok := a.TryAlloc()
	require.True(t, ok)
	h, _, ok := a.TryAlloc()
	require.True(t, ok)
	_, _, ok = a.TryAlloc()
	assert.False(t, ok)
	require.NoError(t, a.Free(h))
	_, _, ok = a.TryAlloc()
	assert.True(t, ok)
}

func TestReserveWaitsForFree(t *testing.T) {
	a := New[item](1)
	h, _, ok := a.TryAlloc()
	require.True(t, ok)

	var wg sync.WaitGroup
	wg.Add(1)
	var reserveErr error
	go func() {
		defer wg.Done()
		reserveErr = a.Reserve(context.Background(), 1)
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Free(h))
	wg.Wait()
	require.NoError(t, reserveErr)
	assert.Equal(t, int64(1), a.Stats().Reserved)

	_, _, ok = a.TryAlloc()
	assert.False(t, ok, "reserved unit must not be available to TryAlloc")
	h, obj, err := a.AllocReserved()
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, int64(0), a.Stats().Reserved)
	_, _, err = a.AllocReserved()
	assert.True(t, errors.Is(err, ErrExhausted))
	require.NoError(t, a.Free(h))
}

func TestReserveHonorsContext(t *testing.T) {
	a := New[item](1)
	_, _, ok := a.TryAlloc()
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := a.Reserve(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.Is(a.Reserve(context.Background(), 5), ErrExhausted))
}

func TestUnreserveReleasesBudget(t *testing.T) {
	a := New[item](1)
	require.NoError(t, a.Reserve(context.Background(), 1))
	_, _, ok := a.TryAlloc()
	assert.False(t, ok)
	a.Unreserve(1)
	_, _, ok = a.TryAlloc()
	assert.True(t, ok)
	assert.Panics(t, func() { a.Unreserve(1) })
}

func TestEachVisitsLiveObjects(t *testing.T) {
	a := New[item](0)
	var hs []Handle
	for i := 0; i < 10; i++ {
		h, obj, _ := a.TryAlloc()
		obj.n = i
		hs = append(hs, h)
	}
	require.NoError(t, a.Free(hs[3]))
	require.NoError(t, a.Free(hs[7]))
	var seen []int
	a.Each(func(h Handle, it *item) bool {
		seen = append(seen, it.n)
		return true
	})
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 8, 9}, seen)
}
