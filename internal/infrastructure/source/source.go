package source

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/domain"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// FileSource produces LocalImage handles from files on disk.
type FileSource struct{}

func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Pick(ctx context.Context, path string) (domain.LocalImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocalImage{}, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", path).Msg("failed to stat image source")
		return domain.LocalImage{}, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}
	if !stat.Mode().IsRegular() {
		return domain.LocalImage{}, fmt.Errorf("%w: %s is not a regular file", domain.ErrSourceUnreadable, path)
	}

	mimeType, err := DetectMimeType(path)
	if err != nil {
		return domain.LocalImage{}, err
	}

	handle := domain.LocalImage{
		URI:      path,
		ByteSize: stat.Size(),
		MimeType: mimeType,
	}

	// Dimensions are informational; undecodable headers leave them at zero and the
	// pipeline's format gate and transform decide what to do with the file.
	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			handle.Width = cfg.Width
			handle.Height = cfg.Height
		} else {
			zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to read image header")
		}
		f.Close()
	}

	zlog.Logger.Info().
		Str("path", path).
		Str("mime_type", handle.MimeType).
		Int64("size", handle.ByteSize).
		Int("width", handle.Width).
		Int("height", handle.Height).
		Msg("image source picked")

	return handle, nil
}

// DetectMimeType sniffs the content type of a file from its leading bytes.
func DetectMimeType(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err)
	}
	return NormalizeMimeType(m.String()), nil
}

// NormalizeMimeType lower-cases, strips parameters and folds image/jpg into image/jpeg.
func NormalizeMimeType(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "image/jpg" || mt == "image/pjpeg" {
		return "image/jpeg"
	}
	return mt
}
