package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

func TestCatalogRepositoryListCoursesBySemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "semester", "prerequisites"}).
		AddRow(11, "CBM1005", "ECUACIONES DIFERENCIALES", 3, "{6,7}").
		AddRow(12, "CBM1006", "CÁLCULO III", 3, "{7}")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, semester, prerequisites FROM courses WHERE semester = $1 ORDER BY id")).
		WithArgs(3).
		WillReturnRows(rows)

	courses, err := repo.ListCourses(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, pq.Int64Array{6, 7}, courses[0].Prerequisites)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryFindCourseNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1")).
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindCourse(context.Background(), 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryFindCourseByCodeNormalises(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "semester", "prerequisites"}).
		AddRow(14, "CIT2006", "ESTRUCTURAS DE DATOS Y ALGORITMOS", 3, "{9}")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE UPPER(code) = $1")).
		WithArgs("CIT2006").
		WillReturnRows(rows)

	course, err := repo.FindCourseByCode(context.Background(), " cit2006 ")
	require.NoError(t, err)
	assert.Equal(t, 14, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryProfessorsForCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "rating"}).
		AddRow("prof-5", "Dr. Juan Pérez", 4.7).
		AddRow("prof-6", "Ing. Laura Torres", 4.9)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN course_professors cp ON cp.professor_id = p.id")).
		WithArgs(4).
		WillReturnRows(rows)

	profs, err := repo.ProfessorsForCourse(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, profs, 2)
	assert.Equal(t, "Ing. Laura Torres", profs[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositorySeedRunsInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	snap := CatalogSnapshot{
		Courses:    []models.Course{{ID: 4, Code: "CIT1000", Name: "PROGRAMACIÓN", Semester: 1}},
		Professors: []models.Professor{{ID: "prof-5", Name: "Dr. Juan Pérez", Rating: 4.7}},
		Links:      []models.CourseProfessor{{CourseID: 4, ProfessorID: "prof-5"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").
		WithArgs(4, "CIT1000", "PROGRAMACIÓN", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO professors").
		WithArgs("prof-5", "Dr. Juan Pérez", 4.7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO course_professors").
		WithArgs(4, "prof-5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Seed(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositorySeedRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Seed(context.Background(), CatalogSnapshot{Courses: []models.Course{{ID: 1, Code: "CBM1000", Name: "ÁLGEBRA Y GEOMETRÍA", Semester: 1}}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
