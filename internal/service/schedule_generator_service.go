package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

type scheduleCatalog interface {
	FindCourse(ctx context.Context, id int) (*models.Course, error)
	FindProfessor(ctx context.Context, id string) (*models.Professor, error)
}

type savedScheduleRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.SavedSchedule) error
	ListByStudent(ctx context.Context, studentID string) ([]models.SavedSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SavedSchedule, error)
	Delete(ctx context.Context, id string) error
}

type savedScheduleBlockRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.SavedScheduleBlock) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.SavedScheduleBlock, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type preferenceResolver interface {
	Resolve(ctx context.Context, studentID string) (models.PreferenceSet, error)
}

// Generation sources reported to metrics.
const (
	generationSourceGenerate   = "generate"
	generationSourceRegenerate = "regenerate"
)

// ScheduleGeneratorService runs the timetable pipeline and keeps recent results
// available for regeneration, saving and export.
type ScheduleGeneratorService struct {
	catalog   scheduleCatalog
	profiles  preferenceResolver
	saved     savedScheduleRepository
	blocks    savedScheduleBlockRepository
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *scheduleStore
	pipeline  pipeline
	cfg       ScheduleGeneratorConfig
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	MaxAttempts     int
	BlocksPerCourse int
	MaxCandidates   int
	ScheduleTTL     time.Duration
	CacheTTL        time.Duration
	Clock           func() time.Time
	SeedSource      func() int64
	RandomFactory   func(seed int64) Randomizer
}

// ScheduleGeneratorDeps groups the optional collaborators of the generator.
type ScheduleGeneratorDeps struct {
	Profiles preferenceResolver
	Saved    savedScheduleRepository
	Blocks   savedScheduleBlockRepository
	Tx       txProvider
	Cache    *CacheService
	Metrics  *MetricsService
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	catalog scheduleCatalog,
	deps ScheduleGeneratorDeps,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BlocksPerCourse <= 0 {
		cfg.BlocksPerCourse = defaultBlocksPerCourse
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	if cfg.ScheduleTTL <= 0 {
		cfg.ScheduleTTL = 2 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.SeedSource == nil {
		cfg.SeedSource = func() int64 { return time.Now().UnixNano() }
	}
	if cfg.RandomFactory == nil {
		cfg.RandomFactory = newRandomizer
	}

	return &ScheduleGeneratorService{
		catalog:   catalog,
		profiles:  deps.Profiles,
		saved:     deps.Saved,
		blocks:    deps.Blocks,
		tx:        deps.Tx,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		validator: validate,
		logger:    logger,
		store:     newScheduleStore(cfg.ScheduleTTL, cfg.Clock),
		pipeline: pipeline{
			maxAttempts:     cfg.MaxAttempts,
			blocksPerCourse: cfg.BlocksPerCourse,
			newRand:         cfg.RandomFactory,
			assembler:       NewScheduleAssembler(cfg.Clock),
		},
		cfg: cfg,
	}
}

// Generate produces a schedule for the requested courses, plus ranked
// alternatives when more than one candidate is requested.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	var prefs models.PreferenceSet
	var err error
	switch {
	case req.Preferences != nil:
		prefs, err = buildPreferenceSet(req.Preferences)
	case req.StudentID != "" && s.profiles != nil:
		prefs, err = s.profiles.Resolve(ctx, req.StudentID)
	default:
		prefs, err = buildPreferenceSet(nil)
	}
	if err != nil {
		return nil, err
	}

	candidates := req.Candidates
	if candidates <= 0 {
		candidates = 1
	}
	if candidates > s.cfg.MaxCandidates {
		candidates = s.cfg.MaxCandidates
	}

	return s.generate(ctx, req.CourseIDs, prefs, req.Seed, candidates, generationSourceGenerate)
}

// Regenerate reruns the pipeline over the courses of a cached schedule.
func (s *ScheduleGeneratorService) Regenerate(ctx context.Context, scheduleID string, req dto.RegenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	entry, err := s.lookup(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	prefs := entry.Preferences
	if req.Preferences != nil {
		if err := s.validator.Struct(req.Preferences); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regeneration payload")
		}
		if prefs, err = buildPreferenceSet(req.Preferences); err != nil {
			return nil, err
		}
	}

	courseIDs := regenerationCourseIDs(entry.Schedule)
	if len(courseIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule has no courses to regenerate")
	}
	return s.generate(ctx, courseIDs, prefs, req.Seed, 1, generationSourceRegenerate)
}

// RegenerateFromSchedule reruns the pipeline over a schedule supplied by the caller.
func (s *ScheduleGeneratorService) RegenerateFromSchedule(ctx context.Context, req dto.StatelessRegenerateRequest) (*dto.GenerateScheduleResponse, error) {
	if req.Preferences != nil {
		if err := s.validator.Struct(req.Preferences); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regeneration payload")
		}
	}
	prefs, err := buildPreferenceSet(req.Preferences)
	if err != nil {
		return nil, err
	}

	courseIDs := regenerationCourseIDs(&req.Schedule)
	if len(courseIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule has no courses to regenerate")
	}
	if len(courseIDs) > dto.MaxCoursesPerRequest {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule has %d courses; at most %d can be regenerated", len(courseIDs), dto.MaxCoursesPerRequest))
	}
	return s.generate(ctx, courseIDs, prefs, req.Seed, 1, generationSourceRegenerate)
}

// Get returns a cached schedule with its quality figures.
func (s *ScheduleGeneratorService) Get(ctx context.Context, scheduleID string) (*dto.ScheduleResult, error) {
	entry, err := s.lookup(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	result := resultFor(entry.Schedule)
	return &result, nil
}

// Save persists a cached schedule for a student.
func (s *ScheduleGeneratorService) Save(ctx context.Context, scheduleID string, req dto.SaveScheduleRequest) (*dto.SavedScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	entry, err := s.lookup(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.saved.FindByID(ctx, scheduleID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule already saved")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load saved schedule")
	}

	prefsPayload, err := json.Marshal(entry.Preferences)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule preferences")
	}
	header := &models.SavedSchedule{
		ID:          entry.Schedule.ID,
		StudentID:   req.StudentID,
		Name:        req.Name,
		Status:      entry.Schedule.Status,
		Preferences: types.JSONText(prefsPayload),
		GeneratedAt: entry.Schedule.CreatedAt,
		CreatedAt:   s.cfg.Clock(),
	}
	rows := savedBlocksFor(entry.Schedule)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.saved.Create(ctx, tx, header); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
		return nil, err
	}
	if err = s.blocks.InsertBatch(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule blocks")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	s.logger.Info("schedule saved",
		zap.String("schedule_id", header.ID),
		zap.String("student_id", header.StudentID),
		zap.Int("blocks", len(rows)),
	)
	return &dto.SavedScheduleResponse{SavedSchedule: *header, Blocks: rows}, nil
}

// ListSaved returns the schedules saved by a student.
func (s *ScheduleGeneratorService) ListSaved(ctx context.Context, studentID string) ([]models.SavedSchedule, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	list, err := s.saved.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved schedules")
	}
	if list == nil {
		list = []models.SavedSchedule{}
	}
	return list, nil
}

// GetSaved returns a saved schedule with its blocks.
func (s *ScheduleGeneratorService) GetSaved(ctx context.Context, id string) (*dto.SavedScheduleResponse, error) {
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	header, err := s.saved.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "saved schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load saved schedule")
	}
	rows, err := s.blocks.ListBySchedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load saved schedule blocks")
	}
	if rows == nil {
		rows = []models.SavedScheduleBlock{}
	}
	return &dto.SavedScheduleResponse{SavedSchedule: *header, Blocks: rows}, nil
}

// DeleteSaved removes a saved schedule.
func (s *ScheduleGeneratorService) DeleteSaved(ctx context.Context, id string) error {
	if err := s.persistenceEnabled(); err != nil {
		return err
	}
	if err := s.saved.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "saved schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete saved schedule")
	}
	return nil
}

// Schedule returns a cached schedule without scoring it.
func (s *ScheduleGeneratorService) Schedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	entry, err := s.lookup(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return entry.Schedule, nil
}

func (s *ScheduleGeneratorService) generate(
	ctx context.Context,
	courseIDs []int,
	prefs models.PreferenceSet,
	seed *int64,
	candidates int,
	source string,
) (*dto.GenerateScheduleResponse, error) {
	courses, skipped, err := s.resolveCourses(ctx, courseIDs, prefs)
	if err != nil {
		return nil, err
	}

	base := s.cfg.SeedSource()
	if seed != nil {
		base = *seed
	}

	results := make([]dto.ScheduleResult, 0, candidates)
	for i := 0; i < candidates; i++ {
		start := time.Now()
		run := s.pipeline.run(courses, skipped, prefs, base+int64(i))
		s.metrics.ObserveGeneration(source, run.Schedule, run.Attempts, time.Since(start))
		s.remember(ctx, storedSchedule{Schedule: run.Schedule, Preferences: prefs})
		results = append(results, resultFor(run.Schedule))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	best := results[0]
	s.logger.Info("schedule generated",
		zap.String("schedule_id", best.ID),
		zap.String("source", source),
		zap.String("status", string(best.Status)),
		zap.Int("blocks", len(best.Blocks)),
		zap.Int("skipped", len(skipped)),
		zap.Int("warnings", len(best.Warnings)),
		zap.Int("candidates", candidates),
	)

	resp := &dto.GenerateScheduleResponse{Schedule: best}
	if len(results) > 1 {
		resp.Alternatives = results[1:]
	}
	return resp, nil
}

// resolveCourses looks ids up in order, dropping duplicates and reporting
// unknown ids as skipped.
func (s *ScheduleGeneratorService) resolveCourses(ctx context.Context, ids []int, prefs models.PreferenceSet) ([]plannedCourse, []int, error) {
	preferred := make(map[int]string, len(prefs.ProfessorPreferences))
	for _, p := range prefs.ProfessorPreferences {
		if _, exists := preferred[p.CourseID]; !exists {
			preferred[p.CourseID] = p.ProfessorID
		}
	}

	seen := make(map[int]struct{}, len(ids))
	courses := make([]plannedCourse, 0, len(ids))
	var skipped []int
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		course, err := s.catalog.FindCourse(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				skipped = append(skipped, id)
				continue
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}

		planned := plannedCourse{Course: *course}
		if profID, ok := preferred[id]; ok {
			prof, err := s.catalog.FindProfessor(ctx, profID)
			switch {
			case err == nil:
				planned.Professor = prof
			case errors.Is(err, sql.ErrNoRows):
				s.logger.Debug("preferred professor not in catalog", zap.Int("course_id", id), zap.String("professor_id", profID))
			default:
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
			}
		}
		courses = append(courses, planned)
	}
	return courses, skipped, nil
}

func (s *ScheduleGeneratorService) persistenceEnabled() error {
	if s.saved == nil || s.blocks == nil || s.tx == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "schedule persistence is disabled")
	}
	return nil
}

func (s *ScheduleGeneratorService) remember(ctx context.Context, entry storedSchedule) {
	s.store.Save(entry)
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, scheduleCacheKey(entry.Schedule.ID), entry, s.cfg.CacheTTL)
	}
}

// lookup finds a schedule in memory first, then in the shared cache.
func (s *ScheduleGeneratorService) lookup(ctx context.Context, id string) (storedSchedule, error) {
	if id == "" {
		return storedSchedule{}, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	entry, status := s.store.Get(id)
	if status == storeHit {
		return entry, nil
	}
	if s.cache.Enabled() {
		var cached storedSchedule
		hit, err := s.cache.Get(ctx, scheduleCacheKey(id), &cached)
		if err == nil && hit && cached.Schedule != nil {
			s.store.Save(cached)
			return cached, nil
		}
	}
	if status == storeExpired {
		return storedSchedule{}, appErrors.Clone(appErrors.ErrScheduleExpired, "schedule expired, generate a new one")
	}
	return storedSchedule{}, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
}

// regenerationCourseIDs lists the courses of schedule in first-appearance
// order, followed by courses that received no block at all.
func regenerationCourseIDs(schedule *models.Schedule) []int {
	ids := schedule.CourseIDs()
	for _, u := range schedule.Unfulfilled {
		if u.Placed == 0 {
			ids = append(ids, u.CourseID)
		}
	}
	return ids
}

func resultFor(schedule *models.Schedule) dto.ScheduleResult {
	score, gaps := scoreSchedule(schedule)
	return dto.ScheduleResult{
		Schedule:         schedule,
		Score:            score,
		GapPenalty:       gaps,
		TotalWeeklyHours: schedule.TotalWeeklyHours(),
	}
}

func savedBlocksFor(schedule *models.Schedule) []models.SavedScheduleBlock {
	rows := make([]models.SavedScheduleBlock, 0, len(schedule.Blocks))
	for _, b := range schedule.Blocks {
		row := models.SavedScheduleBlock{
			ScheduleID: schedule.ID,
			CourseID:   b.CourseID,
			CourseCode: b.CourseCode,
			CourseName: b.CourseName,
			Day:        b.Day,
			TimeSlotID: b.TimeSlotID,
		}
		if b.Professor != nil {
			id, name := b.Professor.ID, b.Professor.Name
			row.ProfessorID, row.ProfessorName = &id, &name
		}
		rows = append(rows, row)
	}
	return rows
}

// --- Schedule cache ---

type storedSchedule struct {
	Schedule    *models.Schedule     `json:"schedule"`
	Preferences models.PreferenceSet `json:"preferences"`
}

type storeStatus int

const (
	storeMiss storeStatus = iota
	storeHit
	storeExpired
)

type scheduleStore struct {
	ttl   time.Duration
	clock func() time.Time
	mu    sync.RWMutex
	items map[string]storedSchedule
}

func newScheduleStore(ttl time.Duration, clock func() time.Time) *scheduleStore {
	return &scheduleStore{
		ttl:   ttl,
		clock: clock,
		items: make(map[string]storedSchedule),
	}
}

func (s *scheduleStore) Save(entry storedSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[entry.Schedule.ID] = entry
}

func (s *scheduleStore) Get(id string) (storedSchedule, storeStatus) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return storedSchedule{}, storeMiss
	}
	if s.clock().Sub(entry.Schedule.CreatedAt) > s.ttl {
		s.Delete(id)
		return storedSchedule{}, storeExpired
	}
	return entry, storeHit
}

func (s *scheduleStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Sweep drops expired entries and reports how many were removed.
func (s *scheduleStore) Sweep() int {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.items {
		if now.Sub(entry.Schedule.CreatedAt) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// SweepExpired drops expired schedules from memory.
func (s *ScheduleGeneratorService) SweepExpired() int {
	removed := s.store.Sweep()
	if removed > 0 {
		s.logger.Debug("expired schedules swept", zap.Int("removed", removed))
	}
	return removed
}
