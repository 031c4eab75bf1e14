package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

func TestSavedScheduleRepositoryCreateWithinTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)
	blocks := NewSavedScheduleBlockRepository(db)

	generated := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO saved_schedules").
		WithArgs("schedule-1", "student-1", "Plan A", string(models.ScheduleStatusComplete), sqlmock.AnyArg(), generated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO saved_schedule_blocks").
		WithArgs(sqlmock.AnyArg(), "schedule-1", 4, "CIT1000", "PROGRAMACIÓN", "MONDAY", 2, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	header := &models.SavedSchedule{ID: "schedule-1", StudentID: "student-1", Name: "Plan A", Status: models.ScheduleStatusComplete, GeneratedAt: generated}
	require.NoError(t, repo.Create(context.Background(), tx, header))
	assert.Equal(t, types.JSONText(`{}`), header.Preferences)

	rows := []models.SavedScheduleBlock{{ScheduleID: "schedule-1", CourseID: 4, CourseCode: "CIT1000", CourseName: "PROGRAMACIÓN", Day: models.Monday, TimeSlotID: 2}}
	require.NoError(t, blocks.InsertBatch(context.Background(), tx, rows))
	assert.NotEmpty(t, rows[0].ID)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryCreateRequiresIdentity(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	err := repo.Create(context.Background(), nil, &models.SavedSchedule{ID: "schedule-1"})
	assert.Error(t, err)
}

func TestSavedScheduleRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "name", "status", "preferences", "generated_at", "created_at"}).
		AddRow("schedule-2", "student-1", "", "PARTIAL", `{}`, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM saved_schedules WHERE student_id = $1 ORDER BY created_at DESC")).
		WithArgs("student-1").
		WillReturnRows(rows)

	list, err := repo.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ScheduleStatusPartial, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedScheduleBlockRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSavedScheduleBlockRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "course_id", "course_code", "course_name", "day", "time_slot_id", "professor_id", "professor_name"}).
		AddRow("b-1", "schedule-1", 4, "CIT1000", "PROGRAMACIÓN", "TUESDAY", 3, "prof-5", "Dr. Juan Pérez")
	mock.ExpectQuery(regexp.QuoteMeta("FROM saved_schedule_blocks WHERE schedule_id = $1")).
		WithArgs("schedule-1").
		WillReturnRows(rows)

	list, err := repo.ListBySchedule(context.Background(), "schedule-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.Tuesday, list[0].Day)
	require.NotNil(t, list[0].ProfessorName)
	assert.Equal(t, "Dr. Juan Pérez", *list[0].ProfessorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
