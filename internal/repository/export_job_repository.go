package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

const exportJobColumns = `id, schedule_id, format, status, progress, result_path, download_url, error_message, created_at, finished_at`

// UpdateExportJobParams defines the mutable fields of an export job.
type UpdateExportJobParams struct {
	Status       *models.ExportStatus
	Progress     *int
	ResultPath   *string
	DownloadURL  *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// ExportJobRepository persists export job metadata in PostgreSQL.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job row with generated defaults.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	prepareExportJob(job)
	const query = `INSERT INTO export_jobs (` + exportJobColumns + `)
VALUES (:id, :schedule_id, :format, :status, :progress, :result_path, :download_url, :error_message, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// Update persists the provided changes for a job row.
func (r *ExportJobRepository) Update(ctx context.Context, id string, params UpdateExportJobParams) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.ResultPath != nil {
		add("result_path", *params.ResultPath)
	}
	if params.DownloadURL != nil {
		add("download_url", *params.DownloadURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *ExportJobRepository) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + exportJobColumns + `
FROM export_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued export jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ExportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportJobColumns + `
FROM export_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	return jobs, nil
}

// MemoryExportJobRepository keeps export jobs in process memory when persistence is disabled.
type MemoryExportJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]models.ExportJob
}

// NewMemoryExportJobRepository constructs an empty in-memory store.
func NewMemoryExportJobRepository() *MemoryExportJobRepository {
	return &MemoryExportJobRepository{jobs: make(map[string]models.ExportJob)}
}

// Create stores a copy of job.
func (r *MemoryExportJobRepository) Create(_ context.Context, job *models.ExportJob) error {
	prepareExportJob(job)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("create export job: duplicate id %s", job.ID)
	}
	r.jobs[job.ID] = *job
	return nil
}

// GetByID returns a copy of the stored job or sql.ErrNoRows.
func (r *MemoryExportJobRepository) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

// Update applies the non-nil fields of params.
func (r *MemoryExportJobRepository) Update(_ context.Context, id string, params UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultPath != nil {
		job.ResultPath = *params.ResultPath
	}
	if params.DownloadURL != nil {
		job.DownloadURL = *params.DownloadURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = *params.ErrorMessage
	}
	if params.FinishedAt != nil {
		finished := *params.FinishedAt
		job.FinishedAt = &finished
	}
	r.jobs[id] = job
	return nil
}

// ListQueued returns queued jobs oldest first.
func (r *MemoryExportJobRepository) ListQueued(_ context.Context, limit int) ([]models.ExportJob, error) {
	return r.list(limit, func(job models.ExportJob) bool {
		return job.Status == models.ExportStatusQueued
	}, func(job models.ExportJob) time.Time { return job.CreatedAt }), nil
}

// ListFinishedBefore returns finished jobs completed before cutoff, oldest first.
func (r *MemoryExportJobRepository) ListFinishedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return r.list(limit, func(job models.ExportJob) bool {
		return job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff)
	}, func(job models.ExportJob) time.Time { return *job.FinishedAt }), nil
}

// Delete drops a job record.
func (r *MemoryExportJobRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *MemoryExportJobRepository) list(limit int, keep func(models.ExportJob) bool, key func(models.ExportJob) time.Time) []models.ExportJob {
	r.mu.RLock()
	out := make([]models.ExportJob, 0)
	for _, job := range r.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return key(out[i]).Before(key(out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func prepareExportJob(job *models.ExportJob) {
	if job.ID == "" {
		job.ID = "export-" + uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
}
