package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

const courseColumns = `id, code, name, semester, prerequisites`

// CatalogRepository reads and seeds the course catalog in PostgreSQL.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCourses returns courses ordered by id; semester 0 lists all.
func (r *CatalogRepository) ListCourses(ctx context.Context, semester int) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	args := []interface{}{}
	if semester > 0 {
		query += ` WHERE semester = $1`
		args = append(args, semester)
	}
	query += ` ORDER BY id`

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindCourse returns sql.ErrNoRows when the id is unknown.
func (r *CatalogRepository) FindCourse(ctx context.Context, id int) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindCourseByCode matches codes case-insensitively.
func (r *CatalogRepository) FindCourseByCode(ctx context.Context, code string) (*models.Course, error) {
	var course models.Course
	query := `SELECT ` + courseColumns + ` FROM courses WHERE UPPER(code) = $1`
	if err := r.db.GetContext(ctx, &course, query, strings.ToUpper(strings.TrimSpace(code))); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListProfessors returns professors ordered by name.
func (r *CatalogRepository) ListProfessors(ctx context.Context) ([]models.Professor, error) {
	var profs []models.Professor
	if err := r.db.SelectContext(ctx, &profs, `SELECT id, name, rating FROM professors ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	return profs, nil
}

// FindProfessor returns sql.ErrNoRows when the id is unknown.
func (r *CatalogRepository) FindProfessor(ctx context.Context, id string) (*models.Professor, error) {
	var prof models.Professor
	if err := r.db.GetContext(ctx, &prof, `SELECT id, name, rating FROM professors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &prof, nil
}

// ProfessorsForCourse lists professors linked to courseID.
func (r *CatalogRepository) ProfessorsForCourse(ctx context.Context, courseID int) ([]models.Professor, error) {
	const query = `SELECT p.id, p.name, p.rating
		FROM professors p
		JOIN course_professors cp ON cp.professor_id = p.id
		WHERE cp.course_id = $1
		ORDER BY p.id`
	var profs []models.Professor
	if err := r.db.SelectContext(ctx, &profs, query, courseID); err != nil {
		return nil, fmt.Errorf("list professors for course %d: %w", courseID, err)
	}
	return profs, nil
}

// Seed upserts a catalog snapshot in a single transaction.
func (r *CatalogRepository) Seed(ctx context.Context, snap CatalogSnapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const courseQuery = `INSERT INTO courses (id, code, name, semester, prerequisites)
		VALUES (:id, :code, :name, :semester, :prerequisites)
		ON CONFLICT (id) DO UPDATE
		SET code = EXCLUDED.code,
		    name = EXCLUDED.name,
		    semester = EXCLUDED.semester,
		    prerequisites = EXCLUDED.prerequisites,
		    updated_at = NOW()`
	for _, course := range snap.Courses {
		if course.Prerequisites == nil {
			course.Prerequisites = []int64{}
		}
		if _, err := tx.NamedExecContext(ctx, courseQuery, course); err != nil {
			return fmt.Errorf("seed course %d: %w", course.ID, err)
		}
	}

	const profQuery = `INSERT INTO professors (id, name, rating)
		VALUES (:id, :name, :rating)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, rating = EXCLUDED.rating, updated_at = NOW()`
	for _, prof := range snap.Professors {
		if _, err := tx.NamedExecContext(ctx, profQuery, prof); err != nil {
			return fmt.Errorf("seed professor %s: %w", prof.ID, err)
		}
	}

	const linkQuery = `INSERT INTO course_professors (course_id, professor_id)
		VALUES (:course_id, :professor_id)
		ON CONFLICT DO NOTHING`
	for _, link := range snap.Links {
		if _, err := tx.NamedExecContext(ctx, linkQuery, link); err != nil {
			return fmt.Errorf("seed course professor %d/%s: %w", link.CourseID, link.ProfessorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
