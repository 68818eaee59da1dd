package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "a", "2"))

	got, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", got)
}

func TestMemStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			assert.NoError(t, s.Set(ctx, key, key))
			got, _, err := s.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, key, got)
		}()
	}
	wg.Wait()
}
