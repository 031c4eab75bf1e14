package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	"github.com/Aliagaaaaaa/horarios-api/internal/repository"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
	"github.com/Aliagaaaaaa/horarios-api/pkg/solver"
)

type remoteSolverStub struct {
	resp  *solver.SolveResponse
	err   error
	calls int
	last  solver.SolveRequest
}

func (s *remoteSolverStub) Solve(ctx context.Context, req solver.SolveRequest) (*solver.SolveResponse, error) {
	s.calls++
	s.last = req
	return s.resp, s.err
}

func newSolverServiceFixture(t *testing.T, remote remoteSolver, fallback bool) (*SolverService, *MetricsService) {
	catalog, err := repository.NewStaticCatalog()
	require.NoError(t, err)
	metrics := NewMetricsService()
	generator := NewScheduleGeneratorService(catalog, ScheduleGeneratorDeps{Metrics: metrics}, nil, nil, ScheduleGeneratorConfig{})
	return NewSolverService(remote, generator, catalog, metrics, nil, nil, SolverServiceConfig{FallbackToLocal: fallback}), metrics
}

func TestSolverServiceReturnsRemoteSolutions(t *testing.T) {
	remote := &remoteSolverStub{resp: &solver.SolveResponse{Solutions: []solver.Solution{{
		TotalScore: 87.5,
		Sections:   []solver.Section{{Course: "CIT1000", Section: "1", Blocks: []string{"LU 08:30 - 09:50"}}},
	}}}}
	svc, _ := newSolverServiceFixture(t, remote, true)
	ranking := 0.4

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{
		Email:           "ana@mail.udp.cl",
		PriorityCourses: []string{"CIT1000"},
		StudentRanking:  &ranking,
	})
	require.NoError(t, err)
	assert.Equal(t, dto.SolveSourceRemote, resp.Source)
	assert.Nil(t, resp.Schedule)
	require.Len(t, resp.Solutions, 1)
	assert.Equal(t, 87.5, resp.Solutions[0].TotalScore)
	assert.Equal(t, 0.4, remote.last.StudentRanking)
	assert.Equal(t, []string{}, remote.last.PassedCourses)
}

func TestSolverServiceFallsBackWhenBreakerOpen(t *testing.T) {
	remote := &remoteSolverStub{err: fmt.Errorf("%w: open", solver.ErrCircuitOpen)}
	svc, metrics := newSolverServiceFixture(t, remote, true)
	seed := int64(12)

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{
		Email:           "ana@mail.udp.cl",
		PriorityCourses: []string{"cit1000", "CBM1001", "XXX9999"},
		ForbiddenSlots:  []string{"LU 08:30 - 09:50", "garbage"},
		Filters: &solver.Filters{FreeDays: &solver.FreeDaysFilter{
			Enabled:            true,
			PreferredFreeDays:  []string{"VI"},
			ForbiddenTimeRange: []solver.TimeRange{{Day: "MA", Start: "10:30", End: "13:10"}},
		}},
		Seed: &seed,
	})
	require.NoError(t, err)
	assert.Equal(t, dto.SolveSourceLocalFallback, resp.Source)
	require.NotNil(t, resp.Schedule)
	assert.Equal(t, []int{4, 2}, resp.Schedule.CourseIDs())
	assert.Contains(t, resp.Notes, "unknown course code XXX9999")
	assert.Contains(t, resp.Notes, `ignored forbidden slot "garbage"`)

	for _, b := range resp.Schedule.Blocks {
		assert.NotEqual(t, models.Friday, b.Day)
		assert.False(t, b.Day == models.Monday && b.TimeSlotID == 1)
		assert.False(t, b.Day == models.Tuesday && (b.TimeSlotID == 2 || b.TimeSlotID == 3 || b.TimeSlotID == 4))
	}

	require.Len(t, resp.Solutions, 1)
	sol := resp.Solutions[0]
	assert.Equal(t, resp.Schedule.Score, sol.TotalScore)
	require.Len(t, sol.Sections, 2)
	assert.Equal(t, "CIT1000", sol.Sections[0].Course)
	assert.Equal(t, "LOCAL", sol.Sections[0].Section)
	assert.Len(t, sol.Sections[0].Blocks, 2)
	assert.Equal(t, uint64(1), metrics.Snapshot().SolverFallbacks)
}

func TestSolverServiceSurfacesClientErrors(t *testing.T) {
	remote := &remoteSolverStub{err: &solver.APIError{StatusCode: 400, Message: "malla desconocida"}}
	svc, _ := newSolverServiceFixture(t, remote, true)

	_, err := svc.Solve(context.Background(), dto.SolveRequest{Email: "ana@mail.udp.cl", CourseIDs: []int{1}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "malla desconocida")
}

func TestSolverServiceWithoutFallback(t *testing.T) {
	remote := &remoteSolverStub{err: errors.New("connection refused")}
	svc, _ := newSolverServiceFixture(t, remote, false)

	_, err := svc.Solve(context.Background(), dto.SolveRequest{Email: "ana@mail.udp.cl", CourseIDs: []int{1}})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnavailable))
}

func TestSolverServiceLocalOnly(t *testing.T) {
	svc, _ := newSolverServiceFixture(t, nil, true)
	ctx := context.Background()

	resp, err := svc.Solve(ctx, dto.SolveRequest{Email: "ana@mail.udp.cl", CourseIDs: []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, dto.SolveSourceLocal, resp.Source)
	assert.Len(t, resp.Schedule.Blocks, 4)

	_, err = svc.Solve(ctx, dto.SolveRequest{Email: "ana@mail.udp.cl"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Solve(ctx, dto.SolveRequest{Email: "not-an-email", CourseIDs: []int{1}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSolverBlockFormatRoundTrip(t *testing.T) {
	assert.Equal(t, "MI 16:00 - 17:20", formatSolverBlock(models.Wednesday, 6))

	day, slot, ok := parseSolverBlock("mi 16:00 - 17:20")
	require.True(t, ok)
	assert.Equal(t, models.Wednesday, day)
	assert.Equal(t, 6, slot)

	_, _, ok = parseSolverBlock("SA 08:30")
	assert.False(t, ok)
	assert.Equal(t, []int{2, 3, 4}, slotsOverlapping(10*60+30, 13*60+10))
}
