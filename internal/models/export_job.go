package models

import "time"

// ExportFormat enumerates timetable export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatICS  ExportFormat = "ics"
)

// Valid reports whether f is a supported format.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatCSV, ExportFormatPDF, ExportFormatXLSX, ExportFormatICS:
		return true
	default:
		return false
	}
}

// ContentType is the MIME type served for downloads of f.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv; charset=utf-8"
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ExportStatus tracks an export job.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob is an asynchronous export of a generated schedule.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	ScheduleID   string       `db:"schedule_id" json:"scheduleId"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	ResultPath   string       `db:"result_path" json:"-"`
	DownloadURL  string       `db:"download_url" json:"downloadUrl,omitempty"`
	ErrorMessage string       `db:"error_message" json:"error,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finishedAt,omitempty"`
}
