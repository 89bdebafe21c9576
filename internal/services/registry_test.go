package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
)

func TestRegistryCapacityNeverExceeded(t *testing.T) {
	t.Parallel()
	r := NewRegistry(5)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.insert(newSession(fmt.Sprintf("user-%d", i), "15551234567"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
			assert.LessOrEqual(t, r.Len(), 5)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
	assert.Equal(t, 45, rejected)
	assert.Equal(t, 5, r.Len())
}

func TestRegistryDuplicateUserSingleWinner(t *testing.T) {
	t.Parallel()
	r := NewRegistry(10)

	var (
		wg      sync.WaitGroup
		results = make(chan error, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.insert(newSession("user-a", "15551234567"))
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		if err == nil {
			ok++
		} else if errors.Is(err, ErrAlreadyExists) {
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	r := NewRegistry(2)
	s := newSession("user-a", "15551234567")
	require.NoError(t, r.insert(s))

	removed, ok := r.Remove("user-a")
	require.True(t, ok)
	assert.Same(t, s, removed)

	_, ok = r.Remove("user-a")
	assert.False(t, ok)
	_, ok = r.Lookup("user-a")
	assert.False(t, ok)
}

func TestRegistryReleaseOnlyMatchingInstance(t *testing.T) {
	t.Parallel()
	r := NewRegistry(2)
	old := newSession("user-a", "15551234567")
	require.NoError(t, r.insert(old))
	_, _ = r.Remove("user-a")

	fresh := newSession("user-a", "15551234567")
	require.NoError(t, r.insert(fresh))

	assert.False(t, r.release(old))
	got, ok := r.Lookup("user-a")
	require.True(t, ok)
	assert.Same(t, fresh, got)
	assert.True(t, r.release(fresh))
}

func TestRegistryStats(t *testing.T) {
	t.Parallel()
	r := NewRegistry(4)
	a := newSession("user-a", "15551234567")
	b := newSession("user-b", "15551234568")
	require.NoError(t, r.insert(a))
	require.NoError(t, r.insert(b))
	a.setState(models.StateOpen)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Connected)
	assert.Equal(t, 4, stats.MaxBots)
	assert.InDelta(t, 50.0, stats.UsagePercentage, 0.001)
}

func TestRegistryRefusesInsertAfterDrain(t *testing.T) {
	t.Parallel()
	r := NewRegistry(2)
	require.NoError(t, r.insert(newSession("user-a", "15551234567")))

	drained := r.drain()
	require.Len(t, drained, 1)
	assert.ErrorIs(t, r.insert(newSession("user-b", "15551234568")), ErrShutdown)
	assert.Equal(t, 0, r.Len())
}
