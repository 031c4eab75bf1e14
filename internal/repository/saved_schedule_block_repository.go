package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// SavedScheduleBlockRepository manages the blocks of saved schedules.
type SavedScheduleBlockRepository struct {
	db *sqlx.DB
}

// NewSavedScheduleBlockRepository builds repository.
func NewSavedScheduleBlockRepository(db *sqlx.DB) *SavedScheduleBlockRepository {
	return &SavedScheduleBlockRepository{db: db}
}

func (r *SavedScheduleBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores blocks, assigning ids to new rows.
func (r *SavedScheduleBlockRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.SavedScheduleBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO saved_schedule_blocks (id, schedule_id, course_id, course_code, course_name, day, time_slot_id, professor_id, professor_name)
VALUES (:id, :schedule_id, :course_id, :course_code, :course_name, :day, :time_slot_id, :professor_id, :professor_name)`

	for i := range blocks {
		block := &blocks[i]
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, block); err != nil {
			return fmt.Errorf("insert saved schedule block: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns blocks ordered by day and slot.
func (r *SavedScheduleBlockRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SavedScheduleBlock, error) {
	const query = `SELECT id, schedule_id, course_id, course_code, course_name, day, time_slot_id, professor_id, professor_name
FROM saved_schedule_blocks WHERE schedule_id = $1
ORDER BY CASE day WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3 WHEN 'THURSDAY' THEN 4 ELSE 5 END, time_slot_id`
	var blocks []models.SavedScheduleBlock
	if err := r.db.SelectContext(ctx, &blocks, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list saved schedule blocks: %w", err)
	}
	return blocks, nil
}
