package domain

import (
	"context"
	"time"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
	// UpdateAvatar writes avatar_url and updated_at for one profile row.
	// An empty avatarURL clears the avatar.
	UpdateAvatar(ctx context.Context, userID, avatarURL string, updatedAt time.Time) error
}
