package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

//go:embed catalogdata/catalog.json
var embeddedCatalog []byte

// CatalogSnapshot is the full catalog content.
type CatalogSnapshot struct {
	Courses    []models.Course          `json:"courses"`
	Professors []models.Professor       `json:"professors"`
	Links      []models.CourseProfessor `json:"course_professors"`
}

// StaticCatalog serves the catalog from memory. It is read-only after construction.
type StaticCatalog struct {
	snapshot    CatalogSnapshot
	courses     map[int]models.Course
	codes       map[string]int
	professors  map[string]models.Professor
	courseProfs map[int][]string
}

// NewStaticCatalog loads the catalog bundled with the binary.
func NewStaticCatalog() (*StaticCatalog, error) {
	return LoadCatalog(strings.NewReader(string(embeddedCatalog)))
}

// LoadCatalog parses a catalog snapshot from JSON.
func LoadCatalog(r io.Reader) (*StaticCatalog, error) {
	var snap CatalogSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &StaticCatalog{
		snapshot:    snap,
		courses:     make(map[int]models.Course, len(snap.Courses)),
		codes:       make(map[string]int, len(snap.Courses)),
		professors:  make(map[string]models.Professor, len(snap.Professors)),
		courseProfs: make(map[int][]string),
	}
	for _, course := range snap.Courses {
		if _, dup := c.courses[course.ID]; dup {
			return nil, fmt.Errorf("duplicate course id %d", course.ID)
		}
		c.courses[course.ID] = course
		c.codes[strings.ToUpper(course.Code)] = course.ID
	}
	for _, prof := range snap.Professors {
		c.professors[prof.ID] = prof
	}
	for _, link := range snap.Links {
		c.courseProfs[link.CourseID] = append(c.courseProfs[link.CourseID], link.ProfessorID)
	}
	return c, nil
}

// Snapshot returns the raw catalog content.
func (c *StaticCatalog) Snapshot() CatalogSnapshot {
	return c.snapshot
}

// ListCourses returns courses ordered by id, optionally restricted to a semester.
func (c *StaticCatalog) ListCourses(_ context.Context, semester int) ([]models.Course, error) {
	out := make([]models.Course, 0, len(c.courses))
	for _, course := range c.courses {
		if semester > 0 && course.Semester != semester {
			continue
		}
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindCourse returns sql.ErrNoRows for unknown ids.
func (c *StaticCatalog) FindCourse(_ context.Context, id int) (*models.Course, error) {
	course, ok := c.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

// FindCourseByCode matches codes case-insensitively.
func (c *StaticCatalog) FindCourseByCode(ctx context.Context, code string) (*models.Course, error) {
	id, ok := c.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c.FindCourse(ctx, id)
}

// ListProfessors returns professors ordered by name.
func (c *StaticCatalog) ListProfessors(_ context.Context) ([]models.Professor, error) {
	out := make([]models.Professor, 0, len(c.professors))
	for _, p := range c.professors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindProfessor returns sql.ErrNoRows for unknown ids.
func (c *StaticCatalog) FindProfessor(_ context.Context, id string) (*models.Professor, error) {
	p, ok := c.professors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

// ProfessorsForCourse lists the professors linked to a course in catalog order.
func (c *StaticCatalog) ProfessorsForCourse(_ context.Context, courseID int) ([]models.Professor, error) {
	ids := c.courseProfs[courseID]
	out := make([]models.Professor, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.professors[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
