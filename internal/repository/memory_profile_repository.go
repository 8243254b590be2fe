package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// MemoryProfileRepository keeps profiles in process memory. It is used when
// the Postgres profile store is disabled; contents are lost on restart.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewMemoryProfileRepository constructs an empty in-memory store.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]models.Profile)}
}

// FindByOpenID returns a copy of the stored profile or sql.ErrNoRows.
func (r *MemoryProfileRepository) FindByOpenID(_ context.Context, openID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[openID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	profile.Data = append([]byte(nil), profile.Data...)
	return &profile, nil
}

// Upsert stores a copy of profile, keeping the original creation time.
func (r *MemoryProfileRepository) Upsert(_ context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *profile
	stored.Data = append([]byte(nil), profile.Data...)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	if existing, ok := r.profiles[profile.OpenID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	r.profiles[profile.OpenID] = stored
	return nil
}
