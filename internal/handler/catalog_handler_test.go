package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

type catalogServiceStub struct {
	query dto.CourseQuery
}

func (s *catalogServiceStub) TimeGrid() dto.TimeGridResponse {
	return dto.TimeGridResponse{Slots: models.TimeSlots}
}

func (s *catalogServiceStub) ListCourses(ctx context.Context, query dto.CourseQuery) ([]models.Course, error) {
	s.query = query
	return []models.Course{{ID: 4, Code: "CIT1000", Name: "Programación", Semester: 1}}, nil
}

func (s *catalogServiceStub) GetCourse(ctx context.Context, id int) (*models.Course, error) {
	if id != 4 {
		return nil, appErrors.Clone(appErrors.ErrUnknownCourse, "course not found")
	}
	return &models.Course{ID: 4, Code: "CIT1000"}, nil
}

func (s *catalogServiceStub) ProfessorsForCourse(ctx context.Context, id int) ([]models.Professor, error) {
	return []models.Professor{{ID: "prof-1", Name: "Dr. Carlos Muñoz", Rating: 4.5}}, nil
}

func (s *catalogServiceStub) ListProfessors(ctx context.Context) ([]models.Professor, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "db down")
}

func TestCatalogHandlerListCoursesBySemester(t *testing.T) {
	stub := &catalogServiceStub{}
	r := newTestRouter(Handlers{Catalog: NewCatalogHandler(stub)})

	w := doJSON(t, r, http.MethodGet, "/api/v1/courses?semester=1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.query.Semester)
	var courses []models.Course
	env := decodeEnvelope(t, w, &courses)
	require.Len(t, courses, 1)
	assert.Equal(t, "CIT1000", courses[0].Code)
	assert.Equal(t, float64(1), env.Meta["count"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestCatalogHandlerRejectsBadSemester(t *testing.T) {
	r := newTestRouter(Handlers{Catalog: NewCatalogHandler(&catalogServiceStub{})})

	w := doJSON(t, r, http.MethodGet, "/api/v1/courses?semester=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandlerGetCourse(t *testing.T) {
	r := newTestRouter(Handlers{Catalog: NewCatalogHandler(&catalogServiceStub{})})

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/api/v1/courses/4", "").Code)

	w := doJSON(t, r, http.MethodGet, "/api/v1/courses/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrUnknownCourse.Code, env.Error.Code)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/v1/courses/zero", "").Code)
}

func TestCatalogHandlerProfessorsAndGrid(t *testing.T) {
	r := newTestRouter(Handlers{Catalog: NewCatalogHandler(&catalogServiceStub{})})

	w := doJSON(t, r, http.MethodGet, "/api/v1/courses/4/professors", "")
	require.Equal(t, http.StatusOK, w.Code)
	var professors []models.Professor
	decodeEnvelope(t, w, &professors)
	require.Len(t, professors, 1)
	assert.Equal(t, "prof-1", professors[0].ID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/timeslots", "")
	require.Equal(t, http.StatusOK, w.Code)
	var grid dto.TimeGridResponse
	decodeEnvelope(t, w, &grid)
	assert.Len(t, grid.Slots, 9)

	assert.Equal(t, http.StatusInternalServerError, doJSON(t, r, http.MethodGet, "/api/v1/professors", "").Code)
}
