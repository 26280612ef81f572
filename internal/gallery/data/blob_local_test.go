package data

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "uploads")
	store := NewLocalBlobStore(dir, logger.Nop())
	ctx := context.Background()

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, store.EnsureDirectory(ctx))
	require.NoError(t, store.EnsureDirectory(ctx))
	require.DirExists(t, dir)

	require.NoError(t, store.Write(ctx, "X_cat.jpg", []byte("hello")))
	data, err := os.ReadFile(filepath.Join(dir, "X_cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	rc, err := store.Open(ctx, "X_cat.jpg")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte("hello"), got)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "X_cat.jpg", infos[0].Name)
	assert.Equal(t, int64(5), infos[0].Size)

	require.NoError(t, store.Remove(ctx, "X_cat.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "X_cat.jpg"))
}

func TestLocalBlobStore_WriteOverwrites(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir(), logger.Nop())
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "X_cat.jpg", []byte("one")))
	require.NoError(t, store.Write(ctx, "X_cat.jpg", []byte("two")))

	data, err := os.ReadFile(filepath.Join(store.Location(), "X_cat.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestLocalBlobStore_MissingFile(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir(), logger.Nop())
	ctx := context.Background()

	err := store.Remove(ctx, "ghost.jpg")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)

	_, err = store.Open(ctx, "ghost.jpg")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)
}

func TestLocalBlobStore_ListMissingDir(t *testing.T) {
	store := NewLocalBlobStore(filepath.Join(t.TempDir(), "absent"), logger.Nop())

	infos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestLocalBlobStore_EnsureDirectoryOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store := NewLocalBlobStore(path, logger.Nop())
	assert.Error(t, store.EnsureDirectory(context.Background()))
}

func TestLocalBlobStore_RejectsTraversal(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir(), logger.Nop())
	ctx := context.Background()

	for _, name := range []string{"", "..", "../etc/passwd", "a/b.jpg", `a\b.jpg`} {
		assert.Error(t, store.Write(ctx, name, []byte("x")), name)
		_, err := store.Open(ctx, name)
		assert.Error(t, err, name)
	}
}
