package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "original"))
	require.NoError(t, store.Set("llm.model", "updated"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("int", 7)
	_ = store.Set("int64", int64(8))
	_ = store.Set("float", 2.5)
	_ = store.Set("duration", 3*time.Second)
	_ = store.Set("duration_string", "150ms")
	_ = store.Set("bool", true)
	_ = store.Set("slice", []any{"a", 1, "b"})
	_ = store.Set("string", "text")

	assert.Equal(t, 7, store.GetInt("int"))
	assert.Equal(t, 8, store.GetInt("int64"))
	assert.Equal(t, 2, store.GetInt("float"))
	assert.InDelta(t, 2.5, store.GetFloat("float"), 1e-9)
	assert.InDelta(t, 7.0, store.GetFloat("int"), 1e-9)
	assert.Equal(t, 3*time.Second, store.GetDuration("duration"))
	assert.Equal(t, 150*time.Millisecond, store.GetDuration("duration_string"))
	assert.True(t, store.GetBool("bool"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("slice"))
	assert.Equal(t, "text", store.GetString("string"))

	// Mismatched types read as zero values.
	assert.Zero(t, store.GetInt("string"))
	assert.Zero(t, store.GetFloat("string"))
	assert.Zero(t, store.GetDuration("string"))
	assert.False(t, store.GetBool("string"))
	assert.Nil(t, store.GetStringSlice("string"))
	assert.Empty(t, store.GetString("int"))
}

func TestConfigStore_PersistenceIsNoop(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
			_ = store.GetInt("counter")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
