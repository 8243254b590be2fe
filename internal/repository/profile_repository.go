package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// ProfileRepository persists front-end profile documents in Postgres.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByOpenID returns the profile stored for openID or sql.ErrNoRows.
func (r *ProfileRepository) FindByOpenID(ctx context.Context, openID string) (*models.Profile, error) {
	const query = `SELECT open_id, data, created_at, updated_at FROM portal_profiles WHERE open_id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, openID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert inserts the profile or replaces the stored document.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	const query = `INSERT INTO portal_profiles (open_id, data, created_at, updated_at)
VALUES (:open_id, :data, :created_at, :updated_at)
ON CONFLICT (open_id)
DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
