package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minimarket/go-marketplace-client/storage"
)

func TestFileStore(t *testing.T) {
	t.Run("set then get", func(t *testing.T) {
		fs, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Set("key", `{"hello":"world"}`))

		value, err := fs.Get("key")
		require.NoError(t, err)
		require.Equal(t, `{"hello":"world"}`, value)
	})

	t.Run("missing key", func(t *testing.T) {
		fs, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)

		_, err = fs.Get("nope")
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		fs, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Set("key", "value"))
		require.NoError(t, fs.Delete("key"))

		_, err = fs.Get("key")
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})

	t.Run("values survive a reopen", func(t *testing.T) {
		dir := t.TempDir()

		fs, err := storage.NewFileStore(dir)
		require.NoError(t, err)
		require.NoError(t, fs.Set("auth", "state-a"))
		require.NoError(t, fs.Set("cart", "state-b"))

		reopened, err := storage.NewFileStore(dir)
		require.NoError(t, err)

		value, err := reopened.Get("auth")
		require.NoError(t, err)
		require.Equal(t, "state-a", value)

		value, err = reopened.Get("cart")
		require.NoError(t, err)
		require.Equal(t, "state-b", value)
	})

	t.Run("creates the data folder", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")

		_, err := storage.NewFileStore(dir)
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("corrupt store file fails loudly", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "client_store.json"), []byte("{broken"), 0o600))

		_, err := storage.NewFileStore(dir)
		require.Error(t, err)
	})
}
