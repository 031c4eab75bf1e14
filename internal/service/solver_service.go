package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
	"github.com/Aliagaaaaaa/horarios-api/pkg/solver"
)

type remoteSolver interface {
	Solve(ctx context.Context, req solver.SolveRequest) (*solver.SolveResponse, error)
}

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
}

type courseCodeLookup interface {
	FindCourseByCode(ctx context.Context, code string) (*models.Course, error)
}

// Fallback reasons reported to metrics.
const (
	fallbackCircuitOpen = "circuit_open"
	fallbackRemoteError = "remote_error"
)

const localSectionName = "LOCAL"

// SolverService answers solve requests with the remote solver, falling back to
// the local generator when the solver is disabled or failing.
type SolverService struct {
	remote    remoteSolver
	generator scheduleGenerator
	courses   courseCodeLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	fallback  bool
}

// SolverServiceConfig tunes fallback behaviour.
type SolverServiceConfig struct {
	FallbackToLocal bool
}

// NewSolverService wires the solver flow. A nil remote means local generation only.
func NewSolverService(
	remote remoteSolver,
	generator scheduleGenerator,
	courses courseCodeLookup,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SolverServiceConfig,
) *SolverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolverService{
		remote:    remote,
		generator: generator,
		courses:   courses,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		fallback:  cfg.FallbackToLocal,
	}
}

// Solve runs a solve request.
func (s *SolverService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}

	if s.remote == nil {
		return s.solveLocally(ctx, req, dto.SolveSourceLocal, nil)
	}

	resp, err := s.remote.Solve(ctx, toSolverRequest(req))
	if err == nil {
		solutions := resp.Solutions
		if solutions == nil {
			solutions = []solver.Solution{}
		}
		return &dto.SolveResponse{Source: dto.SolveSourceRemote, Solutions: solutions}, nil
	}

	var apiErr *solver.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, apiErr.Message)
	}

	reason := fallbackRemoteError
	if errors.Is(err, solver.ErrCircuitOpen) {
		reason = fallbackCircuitOpen
	}
	if !s.fallback {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "remote solver unavailable")
	}

	s.logger.Warn("remote solver failed, generating locally", zap.String("reason", reason), zap.Error(err))
	s.metrics.RecordSolverFallback(reason)
	return s.solveLocally(ctx, req, dto.SolveSourceLocalFallback, []string{"remote solver unavailable: " + reason})
}

func (s *SolverService) solveLocally(ctx context.Context, req dto.SolveRequest, source string, notes []string) (*dto.SolveResponse, error) {
	genReq, extra, err := s.localRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	notes = append(notes, extra...)

	generated, err := s.generator.Generate(ctx, genReq)
	if err != nil {
		return nil, err
	}
	result := generated.Schedule
	return &dto.SolveResponse{
		Source:    source,
		Solutions: []solver.Solution{solutionFor(result)},
		Schedule:  &result,
		Notes:     notes,
	}, nil
}

// localRequest maps a solver payload onto a generator request. Notes describe
// the parts of the payload that could not be honoured.
func (s *SolverService) localRequest(ctx context.Context, req dto.SolveRequest) (dto.GenerateScheduleRequest, []string, error) {
	var notes []string

	courseIDs := append([]int(nil), req.CourseIDs...)
	for _, code := range req.PriorityCourses {
		course, err := s.courses.FindCourseByCode(ctx, code)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				notes = append(notes, fmt.Sprintf("unknown course code %s", code))
				continue
			}
			return dto.GenerateScheduleRequest{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course code")
		}
		courseIDs = append(courseIDs, course.ID)
	}
	if len(courseIDs) == 0 {
		return dto.GenerateScheduleRequest{}, nil, appErrors.Clone(appErrors.ErrValidation, "no courses to schedule: provide courseIds or ramos_prioritarios")
	}

	prefs := &dto.PreferencesInput{Optimizations: append([]string(nil), req.Optimizations...)}
	seen := make(map[slotKey]struct{})
	block := func(day models.Weekday, slot int, reason string) {
		key := slotKey{Day: day, Time: slot}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		prefs.BlockedSlots = append(prefs.BlockedSlots, dto.BlockedSlotInput{Day: string(day), TimeSlotID: slot, Reason: reason})
	}

	for _, raw := range req.ForbiddenSlots {
		day, slot, ok := parseSolverBlock(raw)
		if !ok {
			notes = append(notes, fmt.Sprintf("ignored forbidden slot %q", raw))
			continue
		}
		block(day, slot, "horario prohibido")
	}

	if req.Filters != nil && req.Filters.FreeDays != nil && req.Filters.FreeDays.Enabled {
		free := req.Filters.FreeDays
		for _, raw := range free.PreferredFreeDays {
			day, ok := models.ParseWeekday(raw)
			if !ok {
				notes = append(notes, fmt.Sprintf("ignored free day %q", raw))
				continue
			}
			for _, ts := range models.TimeSlots {
				block(day, ts.ID, "dia libre")
			}
		}
		for _, window := range free.ForbiddenTimeRange {
			day, ok := models.ParseWeekday(window.Day)
			start, end := models.ClockMinutes(window.Start), models.ClockMinutes(window.End)
			if !ok || start < 0 || end <= start {
				notes = append(notes, fmt.Sprintf("ignored forbidden range %s %s-%s", window.Day, window.Start, window.End))
				continue
			}
			for _, slot := range slotsOverlapping(start, end) {
				block(day, slot, "franja prohibida")
			}
		}
		if free.MinimizeGaps {
			prefs.Optimizations = append(prefs.Optimizations, string(models.OptimizeMinimizeGaps))
		}
	}
	if req.Filters != nil && req.Filters.Professors != nil && req.Filters.Professors.Enabled {
		notes = append(notes, "professor filters are only applied by the remote solver")
	}

	return dto.GenerateScheduleRequest{
		CourseIDs:   courseIDs,
		Preferences: prefs,
		Seed:        req.Seed,
	}, notes, nil
}

func toSolverRequest(req dto.SolveRequest) solver.SolveRequest {
	out := solver.SolveRequest{
		Email:           req.Email,
		PassedCourses:   nonNil(req.PassedCourses),
		PriorityCourses: nonNil(req.PriorityCourses),
		PreferredSlots:  nonNil(req.PreferredSlots),
		ForbiddenSlots:  nonNil(req.ForbiddenSlots),
		Curriculum:      req.Curriculum,
		Sheet:           req.Sheet,
		Filters:         req.Filters,
		Optimizations:   req.Optimizations,
	}
	if req.StudentRanking != nil {
		out.StudentRanking = *req.StudentRanking
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// solutionFor renders a local schedule in the solver's response shape.
func solutionFor(result dto.ScheduleResult) solver.Solution {
	var order []int
	sections := make(map[int]*solver.Section)
	for _, b := range result.Blocks {
		sec, ok := sections[b.CourseID]
		if !ok {
			sec = &solver.Section{Course: b.CourseCode, Section: localSectionName, Blocks: []string{}}
			if b.Professor != nil {
				sec.Professor = b.Professor.Name
			}
			sections[b.CourseID] = sec
			order = append(order, b.CourseID)
		}
		sec.Blocks = append(sec.Blocks, formatSolverBlock(b.Day, b.TimeSlotID))
	}

	out := solver.Solution{TotalScore: result.Score, Sections: make([]solver.Section, 0, len(order))}
	for _, id := range order {
		out.Sections = append(out.Sections, *sections[id])
	}
	return out
}

// formatSolverBlock renders a cell as "LU 08:30 - 09:50".
func formatSolverBlock(day models.Weekday, slotID int) string {
	ts, _ := models.TimeSlotByID(slotID)
	return day.Code() + " " + ts.Label()
}

// parseSolverBlock reads "LU 08:30 - 09:50" or "LU 08:30" back into a cell.
func parseSolverBlock(raw string) (models.Weekday, int, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", 0, false
	}
	day, ok := models.ParseWeekday(fields[0])
	if !ok {
		return "", 0, false
	}
	for _, ts := range models.TimeSlots {
		if ts.Start == fields[1] {
			return day, ts.ID, true
		}
	}
	return "", 0, false
}
