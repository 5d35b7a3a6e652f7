package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/display"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/dto"
	"github.com/yokitheyo/avatarpipeline/internal/progress"
)

type HandlerConfig struct {
	MaxUploadBytes int64
	TempDir        string
	DefaultQuality float64
	DefaultMaxSize int
}

type AvatarHandler struct {
	service  domain.AvatarService
	source   domain.ImageSource
	profiles domain.ProfileRepository
	resolver *display.Resolver
	cfg      HandlerConfig
}

func NewAvatarHandler(
	service domain.AvatarService,
	source domain.ImageSource,
	profiles domain.ProfileRepository,
	resolver *display.Resolver,
	cfg HandlerConfig,
) *AvatarHandler {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &AvatarHandler{
		service:  service,
		source:   source,
		profiles: profiles,
		resolver: resolver,
		cfg:      cfg,
	}
}

func (h *AvatarHandler) RegisterRoutes(engine *ginext.Engine) {
	engine.POST("/avatar/:user_id", h.UploadAvatar)
	engine.DELETE("/avatar/:user_id", h.RemoveAvatar)
	engine.GET("/avatar/:user_id", h.GetAvatar)
	engine.GET("/avatar/:user_id/placeholder", h.GetPlaceholder)
}

// UploadAvatar POST /avatar/:user_id
func (h *AvatarHandler) UploadAvatar(c *ginext.Context) {
	userID := c.Param("user_id")

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("user_id", userID).Msg("failed to get file from request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "No image file provided",
		})
		return
	}
	defer file.Close()

	if h.cfg.MaxUploadBytes > 0 && header.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   "file_too_large",
			Message: fmt.Sprintf("%v: limit is %d bytes", domain.ErrFileTooLarge, h.cfg.MaxUploadBytes),
		})
		return
	}

	req := dto.UploadAvatarRequest{
		Compress:      c.PostForm("compress"),
		MultipleSizes: c.PostForm("multiple_sizes"),
		Quality:       c.PostForm("quality"),
		MaxSize:       c.PostForm("max_size"),
	}
	opts, err := req.ToOptions(userID, h.cfg.DefaultQuality, h.cfg.DefaultMaxSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}

	path, err := h.spool(file, header)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", userID).Msg("failed to spool upload")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "upload_failed",
			Message: "Failed to receive image",
		})
		return
	}
	// The pipeline deletes the file once it accepts it; this covers early rejections.
	defer os.Remove(path)

	image, err := h.source.Pick(c.Request.Context(), path)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("user_id", userID).Msg("uploaded file is not readable")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_image", Message: err.Error()})
		return
	}
	queue := progress.NewQueuedListener(func(ev domain.ProgressEvent) {
		zlog.Logger.Debug().
			Str("user_id", userID).
			Str("stage", string(ev.Stage)).
			Int("progress", ev.Progress).
			Str("message", ev.Message).
			Msg("upload progress")
	})
	result := h.service.Upload(c.Request.Context(), image, opts, queue.Listen)
	queue.Close()

	if !result.Success {
		status, code := statusFor(result.Err)
		zlog.Logger.Warn().Err(result.Err).Str("user_id", userID).Int("status", status).Msg("avatar upload failed")
		c.JSON(status, dto.ErrorResponse{Error: code, Message: result.Error, Code: status})
		return
	}

	c.JSON(http.StatusCreated, dto.MapUploadResult(result))
}

// RemoveAvatar DELETE /avatar/:user_id
func (h *AvatarHandler) RemoveAvatar(c *ginext.Context) {
	userID := c.Param("user_id")

	result := h.service.RemoveAvatar(c.Request.Context(), userID)
	if !result.Success {
		status, code := statusFor(result.Err)
		zlog.Logger.Error().Err(result.Err).Str("user_id", userID).Msg("failed to remove avatar")
		c.JSON(status, dto.ErrorResponse{Error: code, Message: result.Error, Code: status})
		return
	}

	c.JSON(http.StatusOK, dto.MapRemovalResult(result))
}

// GetAvatar GET /avatar/:user_id
func (h *AvatarHandler) GetAvatar(c *ginext.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "User ID is required",
		})
		return
	}

	props := display.Props{
		Size:  parseSize(c.Query("size")),
		Style: display.ParseStyle(c.Query("style")),
	}
	profile, err := h.profiles.FindByID(c.Request.Context(), userID)
	switch {
	case err == nil:
		props.PrimaryURI = profile.AvatarURL
		props.FallbackURI = profile.ThumbnailURL()
		props.Name = profile.DisplayName
		props.Email = profile.Email
	case errors.Is(err, domain.ErrProfileNotFound):
	default:
		// A profile lookup failure still renders: the display degrades to a placeholder.
		zlog.Logger.Error().Err(err).Str("user_id", userID).Msg("failed to load profile for display")
	}

	view := h.resolver.Resolve(c.Request.Context(), props)

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, dto.MapView(view))
		return
	}

	switch view.Kind {
	case display.ViewPrimary, display.ViewFallback:
		c.Header("Cache-Control", "no-cache")
		c.Redirect(http.StatusFound, view.URI)
	default:
		h.writeSVG(c, view.Placeholder, props.Size)
	}
}

// GetPlaceholder GET /avatar/:user_id/placeholder
func (h *AvatarHandler) GetPlaceholder(c *ginext.Context) {
	req := dto.PlaceholderRequest{
		Name:  c.Query("name"),
		Email: c.Query("email"),
		Style: c.Query("style"),
		Size:  c.Query("size"),
	}
	p := display.NewPlaceholder(req.Name, req.Email, display.ParseStyle(req.Style))
	h.writeSVG(c, p, parseSize(req.Size))
}

func (h *AvatarHandler) writeSVG(c *ginext.Context, p display.Placeholder, size int) {
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "image/svg+xml", display.RenderSVG(p, size))
}

// spool copies the multipart file to a temp file, reading at most one byte past the
// limit so oversize bodies are still caught by the pipeline's size gate.
func (h *AvatarHandler) spool(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp(h.cfg.TempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	var r io.Reader = file
	if h.cfg.MaxUploadBytes > 0 {
		r = io.LimitReader(file, h.cfg.MaxUploadBytes+1)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "cancelled"
	case errors.Is(err, domain.ErrTransform):
		return http.StatusUnprocessableEntity, "transform_failed"
	case errors.Is(err, domain.ErrStorage):
		return http.StatusBadGateway, "storage_failed"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func parseSize(s string) int {
	if s == "" {
		return display.DefaultSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return display.DefaultSize
	}
	if n > display.MaxSize {
		return display.MaxSize
	}
	return n
}
