package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAdapter_GetSet(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "conv_1", json.RawMessage(`{"id": "conv_1"}`)))

	raw, ok, err := adapter.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id": "conv_1"}`, string(raw))

	_, ok, err = adapter.Get(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileAdapter_Overwrite(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "key", json.RawMessage(`"first"`)))
	require.NoError(t, adapter.Set(ctx, "key", json.RawMessage(`"second"`)))

	raw, ok, err := adapter.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"second"`), raw)

	length, err := adapter.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)
}

func TestFileAdapter_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileAdapter(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "conv_1", json.RawMessage(`{"title": "hello"}`)))

	second, err := NewFileAdapter(dir)
	require.NoError(t, err)
	raw, ok, err := second.Get(ctx, "conv_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"title": "hello"}`, string(raw))
}

func TestFileAdapter_EscapesKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	adapter, err := NewFileAdapter(dir)
	require.NoError(t, err)

	key := "conv/../escape attempt"
	require.NoError(t, adapter.Set(ctx, key, json.RawMessage(`"safe"`)))

	// The value stays inside the store directory under an escaped name.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())

	raw, ok, err := adapter.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"safe"`), raw)

	keys, err := adapter.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestFileAdapter_DeleteAndHas(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "key", json.RawMessage(`1`)))

	has, err := adapter.Has(ctx, "key")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, adapter.Delete(ctx, "key"))

	has, err = adapter.Has(ctx, "key")
	require.NoError(t, err)
	assert.False(t, has)

	assert.NoError(t, adapter.Delete(ctx, "key"))
}

func TestFileAdapter_LoadSaveClear(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, adapter.Save(ctx, map[string]json.RawMessage{
		"a": json.RawMessage(`1`),
		"b": json.RawMessage(`2`),
	}))

	loaded, err := adapter.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, json.RawMessage(`1`), loaded["a"])

	// Save replaces everything.
	require.NoError(t, adapter.Save(ctx, map[string]json.RawMessage{
		"c": json.RawMessage(`3`),
	}))
	keys, err := adapter.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, keys)

	require.NoError(t, adapter.Clear(ctx))
	length, err := adapter.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestFileAdapter_IgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	adapter, err := NewFileAdapter(dir)
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "real", json.RawMessage(`1`)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a value"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".write-leftover"), []byte("{"), 0o644))

	keys, err := adapter.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, keys)
}
