package processor

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"

	// WebP decoding for imaging.Open.
	_ "golang.org/x/image/webp"
)

// ImageProcessor is the transform primitive: decode, fit within bounds, re-encode as JPEG
// into a fresh temp file.
type ImageProcessor struct {
	tempDir string
}

func NewImageProcessor(cfg *config.AvatarConfig) (*ImageProcessor, error) {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", tempDir, err)
	}
	zlog.Logger.Info().
		Str("temp_dir", tempDir).
		Int("thumbnail_size", cfg.ThumbnailSize).
		Msg("ImageProcessor initialized")
	return &ImageProcessor{tempDir: tempDir}, nil
}

func (p *ImageProcessor) TempDir() string {
	return p.tempDir
}

func (p *ImageProcessor) Compress(ctx context.Context, path string, c domain.TransformConstraints) domain.ProcessedImage {
	if err := ctx.Err(); err != nil {
		return domain.FailedImage(fmt.Sprintf("transform cancelled: %v", err))
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		zlog.Logger.Error().
			Int("max_width", c.MaxWidth).
			Int("max_height", c.MaxHeight).
			Msg("invalid transform bounds")
		return domain.FailedImage(fmt.Sprintf("invalid bounds %dx%d", c.MaxWidth, c.MaxHeight))
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", path).Msg("failed to decode image")
		return domain.FailedImage(fmt.Sprintf("decode image: %v", err))
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		zlog.Logger.Error().Str("path", path).Msg("decoded image is empty")
		return domain.FailedImage("decoded image is empty")
	}

	out := fit(img, c.MaxWidth, c.MaxHeight)
	if out.Bounds().Dx() == 0 || out.Bounds().Dy() == 0 {
		zlog.Logger.Error().
			Int("max_width", c.MaxWidth).
			Int("max_height", c.MaxHeight).
			Msg("resize produced empty image")
		return domain.FailedImage("resize produced empty image")
	}

	quality := JPEGQuality(c.Quality)
	outPath := filepath.Join(p.tempDir, fmt.Sprintf("avatar-%s.jpg", uuid.New().String()))
	if err := imaging.Save(out, outPath, imaging.JPEGQuality(quality)); err != nil {
		_ = os.Remove(outPath)
		zlog.Logger.Error().Err(err).Str("path", outPath).Msg("failed to encode image")
		return domain.FailedImage(fmt.Sprintf("encode image: %v", err))
	}

	stat, err := os.Stat(outPath)
	if err != nil || stat.Size() == 0 {
		_ = os.Remove(outPath)
		zlog.Logger.Error().Err(err).Str("path", outPath).Msg("encoded image is empty")
		return domain.FailedImage("empty output after encoding")
	}

	width, height := GetImageDimensions(out)
	zlog.Logger.Info().
		Int("original_width", img.Bounds().Dx()).
		Int("original_height", img.Bounds().Dy()).
		Int("width", width).
		Int("height", height).
		Int("quality", quality).
		Int64("bytes", stat.Size()).
		Msg("image compressed successfully")

	return domain.ProcessedImage{
		URI:      outPath,
		Width:    width,
		Height:   height,
		ByteSize: stat.Size(),
		Success:  true,
	}
}

// fit scales down preserving aspect ratio; images already within bounds are not upscaled.
func fit(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth && b.Dy() <= maxHeight {
		return img
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}

// JPEGQuality maps a [0,1] quality to the encoder's [1,100] scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func GetImageDimensions(img image.Image) (width, height int) {
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy()
}
