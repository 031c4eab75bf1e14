package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

const savedScheduleColumns = `id, student_id, name, status, preferences, generated_at, created_at`

// SavedScheduleRepository persists schedules chosen by students.
type SavedScheduleRepository struct {
	db *sqlx.DB
}

// NewSavedScheduleRepository constructs repository.
func NewSavedScheduleRepository(db *sqlx.DB) *SavedScheduleRepository {
	return &SavedScheduleRepository{db: db}
}

func (r *SavedScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the schedule header. The schedule id is kept from generation.
func (r *SavedScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.SavedSchedule) error {
	if schedule == nil {
		return fmt.Errorf("saved schedule payload is nil")
	}
	if schedule.ID == "" || schedule.StudentID == "" {
		return fmt.Errorf("id and student_id are required")
	}
	if len(schedule.Preferences) == 0 {
		schedule.Preferences = types.JSONText(`{}`)
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO saved_schedules (id, student_id, name, status, preferences, generated_at, created_at)
VALUES (:id, :student_id, :name, :status, :preferences, :generated_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("insert saved schedule: %w", err)
	}
	return nil
}

// ListByStudent returns a student's schedules, newest first.
func (r *SavedScheduleRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SavedSchedule, error) {
	query := `SELECT ` + savedScheduleColumns + ` FROM saved_schedules WHERE student_id = $1 ORDER BY created_at DESC`
	var schedules []models.SavedSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, studentID); err != nil {
		return nil, fmt.Errorf("list saved schedules: %w", err)
	}
	return schedules, nil
}

// FindByID loads a saved schedule header.
func (r *SavedScheduleRepository) FindByID(ctx context.Context, id string) (*models.SavedSchedule, error) {
	query := `SELECT ` + savedScheduleColumns + ` FROM saved_schedules WHERE id = $1`
	var schedule models.SavedSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Delete removes a saved schedule; blocks cascade.
func (r *SavedScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete saved schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("saved schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
