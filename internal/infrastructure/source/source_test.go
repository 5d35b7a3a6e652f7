package source

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func TestPick_ReadsHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "me.png")
	require.NoError(t, imaging.Save(imaging.New(64, 32, color.White), path))

	img, err := NewFileSource().Pick(context.Background(), path)
	require.NoError(t, err)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, path, img.URI)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
	assert.Equal(t, stat.Size(), img.ByteSize)
}

func TestPick_SniffsContentNotExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, imaging.Save(imaging.New(10, 10, color.Black), filepath.Join(dir, "tmp.jpg")))
	require.NoError(t, os.Rename(filepath.Join(dir, "tmp.jpg"), path))

	img, err := NewFileSource().Pick(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
}

func TestPick_NonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	img, err := NewFileSource().Pick(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", img.MimeType)
	assert.Zero(t, img.Width)
}

func TestPick_Missing(t *testing.T) {
	_, err := NewFileSource().Pick(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)

	_, err = NewFileSource().Pick(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrSourceUnreadable)
}

func TestNormalizeMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", NormalizeMimeType("image/jpg"))
	assert.Equal(t, "image/jpeg", NormalizeMimeType(" Image/JPEG "))
	assert.Equal(t, "text/plain", NormalizeMimeType("text/plain; charset=utf-8"))
	assert.Equal(t, "image/webp", NormalizeMimeType("image/webp"))
}
