package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	"github.com/Aliagaaaaaa/horarios-api/pkg/export"
	"github.com/Aliagaaaaaa/horarios-api/pkg/storage"
)

type scheduleSource interface {
	Schedule(ctx context.Context, scheduleID string) (*models.Schedule, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type gridRenderer interface {
	Render(grid export.Grid) ([]byte, error)
}

type calendarRenderer interface {
	Render(calendar export.Calendar) ([]byte, error)
}

// ExportRenderers selects the renderer per format. Nil entries use the pkg/export defaults.
type ExportRenderers struct {
	CSV  gridRenderer
	PDF  gridRenderer
	XLSX gridRenderer
	ICS  calendarRenderer
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	// TermStart anchors recurring calendar events. Zero means the Monday of the current week.
	TermStart time.Time
	TermWeeks int
	Timezone  string
	Clock     func() time.Time
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders schedules into files and signs their download links.
type ExportService struct {
	schedules scheduleSource
	storage   fileStorage
	renderers ExportRenderers
	signer    *storage.SignedURLSigner
	location  *time.Location
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(schedules scheduleSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers ExportRenderers) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.TermWeeks <= 0 {
		cfg.TermWeeks = 16
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		if cfg.Timezone != "" {
			logger.Warn("unknown export timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		}
		loc = time.UTC
		cfg.Timezone = "UTC"
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.PDF == nil {
		renderers.PDF = export.NewPDFExporter()
	}
	if renderers.XLSX == nil {
		renderers.XLSX = export.NewXLSXExporter()
	}
	if renderers.ICS == nil {
		renderers.ICS = export.NewICSExporter()
	}
	return &ExportService{
		schedules: schedules,
		storage:   store,
		renderers: renderers,
		signer:    signer,
		location:  loc,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the job's schedule in the requested format and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	schedule, err := s.schedules.Schedule(ctx, job.ScheduleID)
	if err != nil {
		return nil, err
	}
	payload, err := s.Render(schedule, job.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Render produces the file contents of schedule in format.
func (s *ExportService) Render(schedule *models.Schedule, format models.ExportFormat) ([]byte, error) {
	switch format {
	case models.ExportFormatCSV:
		return s.renderers.CSV.Render(WeeklyGrid(schedule))
	case models.ExportFormatPDF:
		return s.renderers.PDF.Render(WeeklyGrid(schedule))
	case models.ExportFormatXLSX:
		return s.renderers.XLSX.Render(WeeklyGrid(schedule))
	case models.ExportFormatICS:
		if len(schedule.Blocks) == 0 {
			return nil, fmt.Errorf("schedule %s has no blocks to export", schedule.ID)
		}
		return s.renderers.ICS.Render(s.weeklyCalendar(schedule))
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := s.cfg.Clock().UTC().Format("20060102_150405")
	return fmt.Sprintf("horario_%s_%s.%s", sanitizeFilename(job.ScheduleID), timestamp, job.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// WeeklyGrid lays the schedule out with slots as rows and weekdays as columns.
func WeeklyGrid(schedule *models.Schedule) export.Grid {
	headers := make([]string, 0, len(models.Weekdays)+1)
	headers = append(headers, "Bloque")
	for _, day := range models.Weekdays {
		headers = append(headers, day.Label())
	}

	cells := make(map[slotKey][]string, len(schedule.Blocks))
	for _, b := range schedule.Blocks {
		key := slotKey{Day: b.Day, Time: b.TimeSlotID}
		cells[key] = append(cells[key], blockLabel(b))
	}

	rows := make([][]string, 0, len(models.TimeSlots))
	for _, slot := range models.TimeSlots {
		row := make([]string, 0, len(headers))
		row = append(row, slot.Label())
		for _, day := range models.Weekdays {
			row = append(row, strings.Join(cells[slotKey{Day: day, Time: slot.ID}], " / "))
		}
		rows = append(rows, row)
	}
	return export.Grid{
		Title:   fmt.Sprintf("Horario %s", schedule.ID),
		Headers: headers,
		Rows:    rows,
	}
}

func blockLabel(b models.ScheduleBlock) string {
	label := strings.TrimSpace(b.CourseCode + " " + b.CourseName)
	if b.Professor != nil && b.Professor.Name != "" {
		label = fmt.Sprintf("%s (%s)", label, b.Professor.Name)
	}
	return label
}

// weeklyCalendar emits one recurring event per block, first occurring on the
// block's weekday in the week of the term start.
func (s *ExportService) weeklyCalendar(schedule *models.Schedule) export.Calendar {
	start := s.termStart()
	events := make([]export.RecurringEvent, 0, len(schedule.Blocks))
	for i, b := range schedule.Blocks {
		slot, ok := models.TimeSlotByID(b.TimeSlotID)
		if !ok || !b.Day.Valid() {
			continue
		}
		date := firstOccurrence(start, b.Day.StdWeekday())
		startMin, endMin := slot.Minutes()
		event := export.RecurringEvent{
			UID:     fmt.Sprintf("%s-%d-%s-%d@horarios", schedule.ID, i, strings.ToLower(b.Day.Code()), b.TimeSlotID),
			Summary: strings.TrimSpace(b.CourseCode + " " + b.CourseName),
			Start:   date.Add(time.Duration(startMin) * time.Minute),
			End:     date.Add(time.Duration(endMin) * time.Minute),
			Weeks:   s.cfg.TermWeeks,
		}
		if b.Professor != nil {
			event.Description = "Profesor: " + b.Professor.Name
		}
		events = append(events, event)
	}
	return export.Calendar{
		Name:     fmt.Sprintf("Horario %s", schedule.ID),
		Timezone: s.cfg.Timezone,
		Events:   events,
	}
}

func (s *ExportService) termStart() time.Time {
	if !s.cfg.TermStart.IsZero() {
		t := s.cfg.TermStart
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
	}
	now := s.cfg.Clock().In(s.location)
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, s.location)
}

// firstOccurrence returns the first date on or after start that falls on weekday.
func firstOccurrence(start time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, delta)
}
