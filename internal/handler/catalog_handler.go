package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
	"github.com/Aliagaaaaaa/horarios-api/pkg/response"
)

type catalogService interface {
	TimeGrid() dto.TimeGridResponse
	ListCourses(ctx context.Context, query dto.CourseQuery) ([]models.Course, error)
	GetCourse(ctx context.Context, id int) (*models.Course, error)
	ProfessorsForCourse(ctx context.Context, id int) ([]models.Professor, error)
	ListProfessors(ctx context.Context) ([]models.Professor, error)
}

// CatalogHandler serves the time grid, courses and professors.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// TimeSlots godoc
// @Summary Weekly time grid
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *CatalogHandler) TimeSlots(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.TimeGrid(), nil)
}

// ListCourses godoc
// @Summary List catalog courses
// @Tags Catalog
// @Produce json
// @Param semester query int false "Semester filter"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	var query dto.CourseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course query"))
		return
	}
	courses, err := h.service.ListCourses(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, withMeta(c, map[string]interface{}{"count": len(courses)}))
}

// GetCourse godoc
// @Summary Get a course
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	course, err := h.service.GetCourse(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// CourseProfessors godoc
// @Summary Professors teaching a course
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/professors [get]
func (h *CatalogHandler) CourseProfessors(c *gin.Context) {
	id, ok := courseIDParam(c)
	if !ok {
		return
	}
	professors, err := h.service.ProfessorsForCourse(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, nil)
}

// ListProfessors godoc
// @Summary List professors
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *CatalogHandler) ListProfessors(c *gin.Context) {
	professors, err := h.service.ListProfessors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, nil)
}

func courseIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course id must be a positive integer"))
		return 0, false
	}
	return id, true
}
