package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/pkg/solver"
)

type solverServiceStub struct {
	req dto.SolveRequest
}

func (s *solverServiceStub) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	s.req = req
	return &dto.SolveResponse{
		Source:    dto.SolveSourceLocalFallback,
		Solutions: []solver.Solution{{TotalScore: 12.5}},
		Notes:     []string{"remote solver unavailable"},
	}, nil
}

func TestSolverHandlerSolve(t *testing.T) {
	stub := &solverServiceStub{}
	r := newTestRouter(Handlers{Solver: NewSolverHandler(stub)})

	w := doJSON(t, r, http.MethodPost, "/api/v1/schedules/solve",
		`{"email":"ana@example.cl","ramos_prioritarios":["CIT1000"],"horarios_prohibidos":["VI 08:30 - 09:50"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"CIT1000"}, stub.req.PriorityCourses)
	assert.Equal(t, []string{"VI 08:30 - 09:50"}, stub.req.ForbiddenSlots)

	var result dto.SolveResponse
	env := decodeEnvelope(t, w, &result)
	require.Len(t, result.Solutions, 1)
	assert.Equal(t, 12.5, result.Solutions[0].TotalScore)
	assert.Equal(t, dto.SolveSourceLocalFallback, env.Meta["source"])
}

func TestSolverHandlerMalformedPayload(t *testing.T) {
	r := newTestRouter(Handlers{Solver: NewSolverHandler(&solverServiceStub{})})

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/v1/schedules/solve", `not json`).Code)
}
