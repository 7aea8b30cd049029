package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_GetSet(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	err := adapter.Set(ctx, "key1", json.RawMessage(`"value1"`))
	require.NoError(t, err)

	raw, ok, err := adapter.Get(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, json.RawMessage(`"value1"`), raw)

	_, ok, err = adapter.Get(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAdapter_NoAliasing(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	in := json.RawMessage(`"aaaa"`)
	require.NoError(t, adapter.Set(ctx, "key1", in))
	in[1] = 'z'

	raw, ok, err := adapter.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"aaaa"`), raw)

	// Mutating what Get returned must not touch the stored value either.
	raw[1] = 'z'
	again, _, err := adapter.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"aaaa"`), again)
}

func TestMemoryAdapter_Delete(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	require.NoError(t, adapter.Set(ctx, "key1", json.RawMessage(`"value1"`)))
	require.NoError(t, adapter.Delete(ctx, "key1"))

	_, ok, err := adapter.Get(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, adapter.Delete(ctx, "nonexistent"))
}

func TestMemoryAdapter_Has(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	has, err := adapter.Has(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, adapter.Set(ctx, "key1", json.RawMessage(`"value1"`)))

	has, err = adapter.Has(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestMemoryAdapter_KeysAndLen(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	keys, err := adapter.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_ = adapter.Set(ctx, "key1", json.RawMessage(`"v1"`))
	_ = adapter.Set(ctx, "key2", json.RawMessage(`"v2"`))

	keys, err = adapter.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "key1")
	assert.Contains(t, keys, "key2")

	length, err := adapter.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestMemoryAdapter_Clear(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	_ = adapter.Set(ctx, "key1", json.RawMessage(`"v1"`))
	_ = adapter.Set(ctx, "key2", json.RawMessage(`"v2"`))

	require.NoError(t, adapter.Clear(ctx))

	length, _ := adapter.Len(ctx)
	assert.Equal(t, 0, length)
}

func TestMemoryAdapter_LoadSave(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	data := map[string]json.RawMessage{
		"key1": json.RawMessage(`"value1"`),
		"key2": json.RawMessage(`42`),
	}
	require.NoError(t, adapter.Save(ctx, data))

	loaded, err := adapter.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, json.RawMessage(`"value1"`), loaded["key1"])
	assert.Equal(t, json.RawMessage(`42`), loaded["key2"])
}

func TestMemoryAdapter_Concurrent(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = adapter.Set(ctx, "key", json.RawMessage(`"value"`))
		}()
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = adapter.Get(ctx, "key")
		}()
	}
	wg.Wait()

	has, _ := adapter.Has(ctx, "key")
	assert.True(t, has)
}
