package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_StoreGetDelete(t *testing.T) {
	// given
	ctx := context.Background()
	backend, err := NewLocalStorage(Config{LocalPath: t.TempDir()})
	require.NoError(t, err)

	// when
	err = backend.Store(ctx, "projects/1/source.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)

	// then
	exists, err := backend.Exists(ctx, "projects/1/source.png")
	require.NoError(t, err)
	assert.True(t, exists)

	reader, err := backend.Get(ctx, "projects/1/source.png")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, backend.Delete(ctx, "projects/1/source.png"))
	exists, err = backend.Exists(ctx, "projects/1/source.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_Get_ShouldReturnNotFound(t *testing.T) {
	// given
	backend, err := NewLocalStorage(Config{LocalPath: t.TempDir()})
	require.NoError(t, err)

	// when
	_, err = backend.Get(context.Background(), "missing.png")

	// then
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_Delete_ShouldIgnoreMissingFile(t *testing.T) {
	backend, err := NewLocalStorage(Config{LocalPath: t.TempDir()})
	require.NoError(t, err)

	assert.NoError(t, backend.Delete(context.Background(), "missing.png"))
}

func TestLocalStorage_ShouldRejectEscapingPaths(t *testing.T) {
	// given
	backend, err := NewLocalStorage(Config{LocalPath: t.TempDir()})
	require.NoError(t, err)

	for _, p := range []string{"../outside.png", "projects/../../outside.png", "", "/"} {
		// when
		err := backend.Store(context.Background(), p, strings.NewReader("x"), 1, "image/png")

		// then
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestNewBackend_ShouldDefaultToLocal(t *testing.T) {
	backend, err := NewBackend(context.Background(), Config{LocalPath: t.TempDir()})

	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, backend)
}
