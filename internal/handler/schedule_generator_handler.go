package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
	"github.com/Aliagaaaaaa/horarios-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Regenerate(ctx context.Context, scheduleID string, req dto.RegenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	RegenerateFromSchedule(ctx context.Context, req dto.StatelessRegenerateRequest) (*dto.GenerateScheduleResponse, error)
	Get(ctx context.Context, scheduleID string) (*dto.ScheduleResult, error)
	Save(ctx context.Context, scheduleID string, req dto.SaveScheduleRequest) (*dto.SavedScheduleResponse, error)
	ListSaved(ctx context.Context, studentID string) ([]models.SavedSchedule, error)
	GetSaved(ctx context.Context, id string) (*dto.SavedScheduleResponse, error)
	DeleteSaved(ctx context.Context, id string) error
}

// ScheduleGeneratorHandler exposes timetable generation endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc scheduleGenerator) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Generate a weekly timetable
// @Description Places two weekly blocks per course honoring blocked slots and optimization flags. Partial placements are reported in the schedule, not as errors.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generate schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, withMeta(c, generationMeta(result)))
}

// Regenerate godoc
// @Summary Regenerate a cached timetable
// @Description Reruns generation over the distinct courses of a cached schedule with its stored or overriding preferences.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.RegenerateScheduleRequest false "Override preferences"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /schedules/{id}/regenerate [post]
func (h *ScheduleGeneratorHandler) Regenerate(c *gin.Context) {
	var req dto.RegenerateScheduleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid regenerate payload"))
			return
		}
	}
	result, err := h.service.Regenerate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, withMeta(c, generationMeta(result)))
}

// RegenerateStateless godoc
// @Summary Regenerate a client-supplied timetable
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.StatelessRegenerateRequest true "Schedule and preferences"
// @Success 200 {object} response.Envelope
// @Router /schedules/regenerate [post]
func (h *ScheduleGeneratorHandler) RegenerateStateless(c *gin.Context) {
	var req dto.StatelessRegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid regenerate payload"))
		return
	}
	result, err := h.service.RegenerateFromSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, withMeta(c, generationMeta(result)))
}

// Get godoc
// @Summary Get a cached timetable
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleGeneratorHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist a cached timetable for a student
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.SaveScheduleRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/{id}/save [post]
func (h *ScheduleGeneratorHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	saved, err := h.service.Save(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, saved)
}

// ListSaved godoc
// @Summary List saved timetables of a student
// @Tags Saved Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/schedules [get]
func (h *ScheduleGeneratorHandler) ListSaved(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return
	}
	items, err := h.service.ListSaved(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, withMeta(c, map[string]interface{}{"count": len(items)}))
}

// GetSaved godoc
// @Summary Get a saved timetable with its blocks
// @Tags Saved Schedules
// @Produce json
// @Param id path string true "Saved schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /saved-schedules/{id} [get]
func (h *ScheduleGeneratorHandler) GetSaved(c *gin.Context) {
	saved, err := h.service.GetSaved(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved, nil)
}

// DeleteSaved godoc
// @Summary Delete a saved timetable
// @Tags Saved Schedules
// @Param id path string true "Saved schedule ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /saved-schedules/{id} [delete]
func (h *ScheduleGeneratorHandler) DeleteSaved(c *gin.Context) {
	if err := h.service.DeleteSaved(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func generationMeta(result *dto.GenerateScheduleResponse) map[string]interface{} {
	if result == nil || result.Schedule.Schedule == nil {
		return nil
	}
	return map[string]interface{}{
		"candidates": len(result.Alternatives) + 1,
		"status":     result.Schedule.Status,
	}
}
