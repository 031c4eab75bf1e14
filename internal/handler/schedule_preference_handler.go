package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/service"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
	"github.com/Aliagaaaaaa/horarios-api/pkg/response"
)

type preferenceProfileService interface {
	Get(ctx context.Context, studentID string) (*dto.PreferenceProfileResponse, error)
	Update(ctx context.Context, studentID string, in dto.PreferencesInput) (*dto.PreferenceProfileResponse, error)
}

type blockedSlotImporter interface {
	Import(ctx context.Context, r io.Reader) (*dto.BlockedSlotImportResponse, error)
}

// SchedulePreferenceHandler exposes student preference profiles and calendar imports.
type SchedulePreferenceHandler struct {
	profiles preferenceProfileService
	importer blockedSlotImporter
}

// NewSchedulePreferenceHandler constructs the handler.
func NewSchedulePreferenceHandler(profiles preferenceProfileService, importer blockedSlotImporter) *SchedulePreferenceHandler {
	return &SchedulePreferenceHandler{profiles: profiles, importer: importer}
}

// Get godoc
// @Summary Get a student's preference profile
// @Description Returns the stored profile or the defaults when none is stored.
// @Tags Preferences
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/preferences [get]
func (h *SchedulePreferenceHandler) Get(c *gin.Context) {
	studentID := requireStudentID(c)
	if studentID == "" {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Update godoc
// @Summary Replace a student's preference profile
// @Tags Preferences
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.PreferencesInput true "Preference payload"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{studentId}/preferences [put]
func (h *SchedulePreferenceHandler) Update(c *gin.Context) {
	studentID := requireStudentID(c)
	if studentID == "" {
		return
	}
	var req dto.PreferencesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// ImportBlockedSlots godoc
// @Summary Derive blocked slots from an iCalendar file
// @Description Every event overlapping a grid slot on a weekday blocks that cell.
// @Tags Preferences
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "ICS file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /preferences/blocked-slots/import [post]
func (h *SchedulePreferenceHandler) ImportBlockedSlots(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxCalendarBytes+64<<10)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if fileHeader.Size > service.MaxCalendarBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "calendar file too large"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	result, err := h.importer.Import(c.Request.Context(), src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func requireStudentID(c *gin.Context) string {
	studentID := strings.TrimSpace(c.Param("studentId"))
	if studentID == "" || len(studentID) > 128 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return ""
	}
	return studentID
}
