package dto

import (
	"github.com/yokitheyo/avatarpipeline/internal/display"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

type ProgressEventResponse struct {
	Stage       string `json:"stage"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	CurrentFile string `json:"current_file,omitempty"`
}

type UploadResponse struct {
	Success      bool                    `json:"success"`
	AvatarURL    string                  `json:"avatar_url,omitempty"`
	ThumbnailURL string                  `json:"thumbnail_url,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Events       []ProgressEventResponse `json:"events"`
}

type RemovalResponse struct {
	Success bool   `json:"success"`
	Removed int    `json:"removed"`
	Error   string `json:"error,omitempty"`
}

type DisplayResponse struct {
	Kind        string               `json:"kind"`
	URI         string               `json:"uri,omitempty"`
	Placeholder *display.Placeholder `json:"placeholder,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func MapUploadResult(res domain.UploadResult) *UploadResponse {
	events := make([]ProgressEventResponse, 0, len(res.Events))
	for _, ev := range res.Events {
		events = append(events, ProgressEventResponse{
			Stage:       string(ev.Stage),
			Progress:    ev.Progress,
			Message:     ev.Message,
			CurrentFile: ev.CurrentFile,
		})
	}
	return &UploadResponse{
		Success:      res.Success,
		AvatarURL:    res.AvatarURL,
		ThumbnailURL: res.ThumbnailURL,
		Error:        res.Error,
		Events:       events,
	}
}

func MapRemovalResult(res domain.RemovalResult) *RemovalResponse {
	return &RemovalResponse{Success: res.Success, Removed: res.Removed, Error: res.Error}
}

func MapView(v display.View) *DisplayResponse {
	resp := &DisplayResponse{Kind: string(v.Kind), URI: v.URI}
	if v.Kind == display.ViewPlaceholder {
		p := v.Placeholder
		resp.Placeholder = &p
	}
	return resp
}
