package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	const size = 256
	gen := NewGenerator(size)
	for i := 0; i < size; i++ {
		id, err := gen.Generate()
		require.NoError(t, err)
		require.Equal(t, i, id)
		gen.Free(id)
	}

	used := make([]bool, size)
	m := &sync.Mutex{}
	wg := &sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				id, err := gen.Generate()
				if !assert.NoError(t, err) {
					return
				}
				m.Lock()
				assert.False(t, used[id], "used id %d", id)
				used[id] = true
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, size, gen.Count())
}

func TestGenerateExhausted(t *testing.T) {
	gen := NewGenerator(2)
	assert.Equal(t, 2, gen.Size())
	a, err := gen.Generate()
	require.NoError(t, err)
	_, err = gen.Generate()
	require.NoError(t, err)

	_, err = gen.Generate()
	assert.Equal(t, ErrExhausted, err)

	gen.Free(a)
	id, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, a, id)
}

func TestFreeUnknown(t *testing.T) {
	gen := NewGenerator(4)
	gen.Free(-1)
	gen.Free(3)
	gen.Free(100)
	assert.Equal(t, 0, gen.Count())
}

func TestSessionUnique(t *testing.T) {
	a, b := NewSession(), NewSession()
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, Nil, a)
	assert.Len(t, a.String(), 36)
}
