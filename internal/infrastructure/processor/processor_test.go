package processor

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
	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func writeImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

func newProcessor(t *testing.T) *ImageProcessor {
	t.Helper()
	p, err := NewImageProcessor(&config.AvatarConfig{TempDir: t.TempDir(), ThumbnailSize: 150})
	require.NoError(t, err)
	return p
}

func TestCompress_FitsWithinBounds(t *testing.T) {
	p := newProcessor(t)
	src := writeImage(t, t.TempDir(), "big.png", 2000, 1000)

	out := p.Compress(context.Background(), src, domain.TransformConstraints{MaxWidth: 400, MaxHeight: 400, Quality: 0.8})

	require.True(t, out.Success, out.ErrorReason)
	assert.Equal(t, 400, out.Width)
	assert.Equal(t, 200, out.Height)
	assert.Positive(t, out.ByteSize)
	assert.Equal(t, ".jpg", filepath.Ext(out.URI))
	assert.Equal(t, p.TempDir(), filepath.Dir(out.URI))

	decoded, err := imaging.Open(out.URI)
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Bounds().Dx())
}

func TestCompress_DoesNotUpscale(t *testing.T) {
	p := newProcessor(t)
	src := writeImage(t, t.TempDir(), "small.jpg", 120, 80)

	out := p.Compress(context.Background(), src, domain.TransformConstraints{MaxWidth: 400, MaxHeight: 400, Quality: 1})

	require.True(t, out.Success, out.ErrorReason)
	assert.Equal(t, 120, out.Width)
	assert.Equal(t, 80, out.Height)
}

func TestCompress_EachCallWritesNewFile(t *testing.T) {
	p := newProcessor(t)
	src := writeImage(t, t.TempDir(), "a.png", 300, 300)
	c := domain.TransformConstraints{MaxWidth: 100, MaxHeight: 100, Quality: 0.5}

	a := p.Compress(context.Background(), src, c)
	b := p.Compress(context.Background(), src, c)

	require.True(t, a.Success)
	require.True(t, b.Success)
	assert.NotEqual(t, a.URI, b.URI)
}

func TestCompress_Failures(t *testing.T) {
	p := newProcessor(t)
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.jpg")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0644))

	out := p.Compress(context.Background(), garbage, domain.TransformConstraints{MaxWidth: 100, MaxHeight: 100, Quality: 0.8})
	assert.False(t, out.Success)
	assert.Contains(t, out.ErrorReason, "decode image")

	out = p.Compress(context.Background(), filepath.Join(dir, "missing.png"), domain.TransformConstraints{MaxWidth: 100, MaxHeight: 100, Quality: 0.8})
	assert.False(t, out.Success)

	src := writeImage(t, dir, "ok.png", 10, 10)
	out = p.Compress(context.Background(), src, domain.TransformConstraints{MaxWidth: 0, MaxHeight: 100, Quality: 0.8})
	assert.False(t, out.Success)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = p.Compress(ctx, src, domain.TransformConstraints{MaxWidth: 100, MaxHeight: 100, Quality: 0.8})
	assert.False(t, out.Success)
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 1, JPEGQuality(0))
	assert.Equal(t, 80, JPEGQuality(0.8))
	assert.Equal(t, 100, JPEGQuality(1))
	assert.Equal(t, 100, JPEGQuality(3))
}
