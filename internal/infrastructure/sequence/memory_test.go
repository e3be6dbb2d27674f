package sequence

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadesk/internal/core/apperror"
)

func TestMemoryCounter_Monotonic(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := c.IncrementAndGet(ctx, "medicine")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := c.IncrementAndGet(ctx, "patient")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "counters are independent per name")
}

func TestMemoryCounter_ConcurrentCallsHaveNoDuplicatesOrGaps(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "x", 40))

	const k = 200
	results := make([]int64, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.IncrementAndGet(ctx, "x")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		assert.Equal(t, int64(41+i), v)
	}
}

func TestMemoryCounter_SetAndCurrent(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	cur, err := c.Current(ctx, "order-202501")
	require.NoError(t, err)
	assert.Zero(t, cur)

	require.NoError(t, c.Set(ctx, "order-202501", 17))
	next, err := c.IncrementAndGet(ctx, "order-202501")
	require.NoError(t, err)
	assert.Equal(t, int64(18), next)

	err = c.Set(ctx, "order-202501", -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestMemoryCounter_RejectsEmptyName(t *testing.T) {
	c := NewMemoryCounter()

	_, err := c.IncrementAndGet(context.Background(), " ")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestMemoryCounter_ListSorted(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()
	for _, name := range []string{"patient", "chemical", "medicine", "medicine"} {
		_, err := c.IncrementAndGet(ctx, name)
		require.NoError(t, err)
	}

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "chemical", list[0].Name)
	assert.Equal(t, "medicine", list[1].Name)
	assert.Equal(t, int64(2), list[1].Value)
	assert.Equal(t, "patient", list[2].Name)
}

func TestMemoryCounter_RaiseNeverLowers(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	v, err := c.Raise(ctx, "medicine", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	for range 5 {
		_, err := c.IncrementAndGet(ctx, "medicine")
		require.NoError(t, err)
	}

	v, err = c.Raise(ctx, "medicine", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	next, err := c.IncrementAndGet(ctx, "medicine")
	require.NoError(t, err)
	assert.Equal(t, int64(13), next)

	_, err = c.Raise(ctx, "medicine", -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
