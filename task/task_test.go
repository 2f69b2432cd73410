package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRunsOnce(t *testing.T) {
	n := 0
	e := New(func(arg any) { n += arg.(int) }, 3, true)
	e.Run()
	e.Run()
	e.Drop()
	assert.Equal(t, 3, n)
	assert.True(t, e.Finished())
	assert.True(t, e.Executed())
	select {
	case <-e.Done():
	default:
		t.Fatal("completion signal not closed")
	}
}

func TestFireAndForgetHasNoSignal(t *testing.T) {
	e := New(func(any) {}, nil, false)
	assert.Nil(t, e.Done())
	e.Wait()
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Post(New(func(arg any) { got = append(got, arg.(int)) }, i, false)))
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 5, q.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.EqualValues(t, 5, q.Posted())
}

func TestQueueDrainRunsWorkPostedWhileDraining(t *testing.T) {
	q := NewQueue()
	var order []string
	require.NoError(t, q.Post(New(func(any) {
		order = append(order, "first")
		_ = q.Post(New(func(any) { order = append(order, "nested") }, nil, false))
	}, nil, false)))
	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, []string{"first", "nested"}, order)
}

func TestQueueCloseDropsAndReleasesWaiters(t *testing.T) {
	q := NewQueue()
	ran := false
	e := New(func(any) { ran = true }, nil, true)
	require.NoError(t, q.Post(e))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.Wait()
	}()

	assert.Equal(t, 1, q.Close())
	wg.Wait()
	assert.False(t, ran)
	assert.False(t, e.Executed())
	assert.ErrorIs(t, q.Post(New(func(any) {}, nil, false)), ErrClosed)
	assert.True(t, q.Closed())
	assert.Zero(t, q.Close())
}

func TestQueueWakeCoalesces(t *testing.T) {
	q := NewQueue()
	q.Wake()
	q.Wake()
	<-q.Woken()
	select {
	case <-q.Woken():
		t.Fatal("second wake should have coalesced")
	default:
	}
}

func TestQueueConcurrentPosters(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = q.Post(New(func(any) {
					mu.Lock()
					count++
					mu.Unlock()
				}, nil, false))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, q.Drain())
	assert.Equal(t, 800, count)
}
