package dto

import "github.com/Aliagaaaaaa/horarios-api/internal/models"

// ExportRequest captures POST /schedules/:id/exports.
type ExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx ics"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// BlockedSlotImportResponse lists the cells derived from an uploaded calendar.
type BlockedSlotImportResponse struct {
	BlockedSlots  []models.BlockedTimeSlot `json:"blockedSlots"`
	EventsRead    int                      `json:"eventsRead"`
	EventsSkipped int                      `json:"eventsSkipped"`
}
