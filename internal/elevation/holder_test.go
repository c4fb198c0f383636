package elevation

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderEmpty(t *testing.T) {
	h := NewHolder(nil)
	assert.Nil(t, h.Index())
	assert.Equal(t, "", h.Region())
	_, ok := h.MaximumElevation(9, 10, 20)
	assert.False(t, ok)
}

func TestHolderReloadSwaps(t *testing.T) {
	dir := t.TempDir()
	h := NewHolder(nil)

	p1 := writeIndex(t, dir, []Record{{Z: 9, X: 10, Y: 20, Elevation: 30}})
	swapped, err := h.Reload("a", p1)
	require.NoError(t, err)
	require.True(t, swapped)
	assert.Equal(t, "a", h.Region())

	p2 := filepath.Join(dir, "b.dat")
	require.NoError(t, os.Rename(writeIndex(t, dir, []Record{{Z: 9, X: 10, Y: 20, Elevation: 45}}), p2))
	swapped, err = h.Reload("b", p2)
	require.NoError(t, err)
	require.True(t, swapped)
	e, ok := h.MaximumElevation(9, 10, 20)
	require.True(t, ok)
	assert.Equal(t, uint16(45), e)
}

func TestHolderReloadFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	h := NewHolder(nil)
	_, err := h.Reload("a", writeIndex(t, dir, []Record{{Z: 9, X: 10, Y: 20, Elevation: 30}}))
	require.NoError(t, err)
	before := h.Index()

	swapped, err := h.Reload("b", filepath.Join(dir, "missing.dat"))
	require.Error(t, err)
	assert.False(t, swapped)
	assert.Same(t, before, h.Index())
	assert.Equal(t, "a", h.Region())

	empty := filepath.Join(dir, "empty.dat")
	require.NoError(t, os.WriteFile(empty, []byte{1, 2, 3}, 0o644))
	swapped, err = h.Reload("c", empty)
	assert.False(t, swapped)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Same(t, before, h.Index())
}

func TestHolderReloadPartialStillSwaps(t *testing.T) {
	dir := t.TempDir()
	p := writeIndex(t, dir, []Record{{Z: 9, X: 10, Y: 20, Elevation: 30}})
	f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xAA})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	h := NewHolder(nil)
	swapped, err := h.Reload("a", p)
	assert.True(t, swapped)
	require.Error(t, err)
	assert.Equal(t, 1, h.Index().Len())
}

func TestHolderConcurrentReaders(t *testing.T) {
	dir := t.TempDir()
	h := NewHolder(nil)
	p := writeIndex(t, dir, []Record{{Z: 9, X: 10, Y: 20, Elevation: 30}})
	_, err := h.Reload("a", p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				e, ok := h.MaximumElevation(9, 10, 20)
				if assert.True(t, ok) {
					assert.Equal(t, uint16(30), e)
				}
			}
		}()
	}
	for j := 0; j < 20; j++ {
		_, _ = h.Reload("a", p)
	}
	wg.Wait()
}
