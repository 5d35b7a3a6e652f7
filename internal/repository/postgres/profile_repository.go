package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

type profileRepository struct {
	db       *dbpg.DB
	strategy retry.Strategy
}

func NewProfileRepository(db *dbpg.DB, strategy retry.Strategy) domain.ProfileRepository {
	return &profileRepository{
		db:       db,
		strategy: strategy,
	}
}

func (r *profileRepository) FindByID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT id, display_name, email, avatar_url, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p domain.Profile
	var displayName, email, avatarURL sql.NullString

	row := r.db.Master.QueryRowContext(ctx, query, userID)
	err := row.Scan(&p.ID, &displayName, &email, &avatarURL, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", userID).Msg("failed to find profile")
		return nil, fmt.Errorf("find profile: %w", err)
	}

	p.DisplayName = displayName.String
	p.Email = email.String
	p.AvatarURL = avatarURL.String
	return &p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, display_name, email, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email        = EXCLUDED.email,
			avatar_url   = EXCLUDED.avatar_url,
			updated_at   = EXCLUDED.updated_at
	`

	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecWithRetry(ctx, r.strategy, query,
		profile.ID,
		nullString(profile.DisplayName),
		nullString(profile.Email),
		nullString(profile.AvatarURL),
		updatedAt,
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", profile.ID).Msg("failed to upsert profile")
		return fmt.Errorf("upsert profile: %w", err)
	}

	zlog.Logger.Info().Str("user_id", profile.ID).Msg("profile upserted")
	return nil
}

// UpdateAvatar creates the profile row when it does not exist yet, so an upload for a
// fresh identity still lands.
func (r *profileRepository) UpdateAvatar(ctx context.Context, userID, avatarURL string, updatedAt time.Time) error {
	query := `
		INSERT INTO profiles (id, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE SET
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecWithRetry(ctx, r.strategy, query, userID, nullString(avatarURL), updatedAt)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", userID).Msg("failed to update profile avatar")
		return fmt.Errorf("update profile avatar: %w", err)
	}

	zlog.Logger.Info().
		Str("user_id", userID).
		Str("avatar_url", avatarURL).
		Msg("profile avatar updated")
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
