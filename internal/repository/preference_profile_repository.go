package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// PreferenceProfileRepository persists per-student preferences.
type PreferenceProfileRepository struct {
	db *sqlx.DB
}

// NewPreferenceProfileRepository constructs the repository.
func NewPreferenceProfileRepository(db *sqlx.DB) *PreferenceProfileRepository {
	return &PreferenceProfileRepository{db: db}
}

// GetByStudent returns the stored profile or sql.ErrNoRows.
func (r *PreferenceProfileRepository) GetByStudent(ctx context.Context, studentID string) (*models.PreferenceProfile, error) {
	const query = `SELECT student_id, preferences, created_at, updated_at FROM preference_profiles WHERE student_id = $1`
	var profile models.PreferenceProfile
	if err := r.db.GetContext(ctx, &profile, query, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces a student's preferences.
func (r *PreferenceProfileRepository) Upsert(ctx context.Context, profile *models.PreferenceProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if len(profile.Preferences) == 0 {
		profile.Preferences = []byte("{}")
	}

	const query = `INSERT INTO preference_profiles (student_id, preferences, created_at, updated_at)
		VALUES (:student_id, :preferences, :created_at, :updated_at)
		ON CONFLICT (student_id) DO UPDATE
		SET preferences = EXCLUDED.preferences,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert preference profile: %w", err)
	}
	return nil
}
