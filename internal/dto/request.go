package dto

import (
	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/helpers"
)

// UploadAvatarRequest carries the multipart form fields of POST /avatar/:user_id. Empty
// fields take the defaults.
type UploadAvatarRequest struct {
	Compress      string `form:"compress"`
	MultipleSizes string `form:"multiple_sizes"`
	Quality       string `form:"quality"`
	MaxSize       string `form:"max_size"`
}

// ToOptions fails only on values that cannot be parsed; range checks are left to the
// pipeline so every caller gets one set of rules.
func (r *UploadAvatarRequest) ToOptions(userID string, defaultQuality float64, defaultMaxSize int) (domain.UploadOptions, error) {
	opts := domain.DefaultUploadOptions(userID)
	if defaultQuality > 0 {
		opts.Quality = defaultQuality
	}
	if defaultMaxSize > 0 {
		opts.MaxSize = defaultMaxSize
	}

	var err error
	if opts.Compress, err = helpers.ParseBoolDefault(r.Compress, opts.Compress); err != nil {
		return opts, domain.ValidationError(err)
	}
	if opts.GenerateMultipleSizes, err = helpers.ParseBoolDefault(r.MultipleSizes, opts.GenerateMultipleSizes); err != nil {
		return opts, domain.ValidationError(err)
	}
	if opts.Quality, err = helpers.ParseFloatDefault(r.Quality, opts.Quality); err != nil {
		return opts, domain.ValidationError(err)
	}
	if opts.MaxSize, err = helpers.ParseIntDefault(r.MaxSize, opts.MaxSize); err != nil {
		return opts, domain.ValidationError(err)
	}
	// The uploaded temp file belongs to the pipeline once accepted.
	opts.DeleteSource = true
	return opts, nil
}

type PlaceholderRequest struct {
	Name  string `form:"name"`
	Email string `form:"email"`
	Style string `form:"style"`
	Size  string `form:"size"`
}
