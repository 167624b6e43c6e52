package ristretto

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c, err := New(100)
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", []float32{1, 2, 3})
	c.Wait()

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_CopiesVectors(t *testing.T) {
	c, err := New(100)
	require.NoError(t, err)
	defer c.Close()

	in := []float32{1, 2}
	c.Set("k", in)
	c.Wait()
	in[0] = 99

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, float32(1), got[0])

	got[1] = 99
	again, _ := c.Get("k")
	assert.Equal(t, float32(2), again[1])
}

func TestCache_IgnoresEmptyVectors(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	defer c.Close()

	c.Set("empty", nil)
	c.Wait()
	_, ok := c.Get("empty")
	assert.False(t, ok)
}

func TestCache_Bounded(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 200; i++ {
		c.Set(fmt.Sprintf("k%d", i), []float32{float32(i)})
	}
	c.Wait()

	hits := 0
	for i := 0; i < 200; i++ {
		if _, ok := c.Get(fmt.Sprintf("k%d", i)); ok {
			hits++
		}
	}
	assert.LessOrEqual(t, hits, 10)
}

func TestNew_DefaultSize(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	c.Close()
}
