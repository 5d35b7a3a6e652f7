package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

func newTestLocal(t *testing.T) (Storage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStorage(&config.StorageConfig{
		Type:          "local",
		LocalPath:     dir,
		PublicBaseURL: "http://cdn.test/files",
	})
	require.NoError(t, err)
	return s, dir
}

func TestLocalStorage_PutOverwritesFixedName(t *testing.T) {
	s, dir := newTestLocal(t)
	ctx := context.Background()
	opts := domain.PutOptions{ContentType: "image/jpeg", Overwrite: true}

	first, err := s.Put(ctx, "u1", domain.AvatarObjectName, strings.NewReader("first"), 5, opts)
	require.NoError(t, err)
	assert.Equal(t, "u1/avatar.jpg", first.Path)
	assert.Equal(t, "http://cdn.test/files/u1/avatar.jpg", first.PublicURL)

	_, err = s.Put(ctx, "u1", domain.AvatarObjectName, strings.NewReader("second!"), 7, opts)
	require.NoError(t, err)

	objects, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, domain.AvatarObjectName, objects[0].Name)
	assert.Equal(t, int64(7), objects[0].Size)

	data, err := os.ReadFile(filepath.Join(dir, "u1", domain.AvatarObjectName))
	require.NoError(t, err)
	assert.Equal(t, "second!", string(data))
}

func TestLocalStorage_PutWithoutOverwrite(t *testing.T) {
	s, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "u1", "a.jpg", bytes.NewReader([]byte("x")), 1, domain.PutOptions{})
	require.NoError(t, err)

	_, err = s.Put(ctx, "u1", "a.jpg", bytes.NewReader([]byte("y")), 1, domain.PutOptions{})
	assert.Error(t, err)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "..", "a.jpg", strings.NewReader("x"), 1, domain.PutOptions{Overwrite: true})
	assert.Error(t, err)

	_, err = s.Put(ctx, "u1", "../a.jpg", strings.NewReader("x"), 1, domain.PutOptions{Overwrite: true})
	assert.Error(t, err)

	_, err = s.List(ctx, "a/b")
	assert.Error(t, err)
}

func TestLocalStorage_ListEmptyNamespace(t *testing.T) {
	s, _ := newTestLocal(t)

	objects, err := s.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalStorage_RemoveAndStat(t *testing.T) {
	s, _ := newTestLocal(t)
	ctx := context.Background()
	opts := domain.PutOptions{Overwrite: true}

	_, err := s.Put(ctx, "u1", domain.AvatarObjectName, strings.NewReader("a"), 1, opts)
	require.NoError(t, err)
	_, err = s.Put(ctx, "u1", domain.ThumbnailObjectName, strings.NewReader("t"), 1, opts)
	require.NoError(t, err)

	info, err := s.Stat(ctx, "u1", domain.ThumbnailObjectName)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Size)

	require.NoError(t, s.Remove(ctx, "u1", []string{domain.AvatarObjectName, domain.ThumbnailObjectName, "missing.jpg"}))

	objects, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, objects)

	_, err = s.Stat(ctx, "u1", domain.AvatarObjectName)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestNew_UnsupportedType(t *testing.T) {
	_, err := New(&config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}
