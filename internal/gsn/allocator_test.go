package gsn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocator_FirstValueIsOne(t *testing.T) {
	a, err := Open(t.TempDir())
	require.NoError(t, err)

	v, err := a.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestAllocator_Monotonic(t *testing.T) {
	a, err := Open(t.TempDir())
	require.NoError(t, err)

	var last uint64
	for i := 0; i < 50; i++ {
		v, err := a.Next()
		require.NoError(t, err)
		require.Greater(t, v, last)
		last = v
	}
}

func TestAllocator_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := a.Next()
		require.NoError(t, err)
	}

	b, err := Open(dir)
	require.NoError(t, err)
	current, err := b.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(5), current)

	v, err := b.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(6), v)
}

func TestAllocator_ConcurrentUnique(t *testing.T) {
	a, err := Open(t.TempDir())
	require.NoError(t, err)

	const writers = 8
	const perWriter = 50

	results := make(chan uint64, writers*perWriter)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				v, err := a.Next()
				require.NoError(t, err)
				results <- v
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]bool, writers*perWriter)
	for v := range results {
		require.False(t, seen[v], "gsn %d allocated twice", v)
		seen[v] = true
	}
	require.Len(t, seen, writers*perWriter)

	current, err := a.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(writers*perWriter), current)
}

func TestAllocator_Reset(t *testing.T) {
	a, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = a.Next()
	require.NoError(t, err)

	require.NoError(t, a.Reset(100))
	current, err := a.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(100), current)
}
