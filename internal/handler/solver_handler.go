package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
	"github.com/Aliagaaaaaa/horarios-api/pkg/response"
)

type solverService interface {
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
}

// SolverHandler proxies solve requests to the remote solver with local fallback.
type SolverHandler struct {
	service solverService
}

// NewSolverHandler constructs the handler.
func NewSolverHandler(svc solverService) *SolverHandler {
	return &SolverHandler{service: svc}
}

// Solve godoc
// @Summary Solve a timetable with the remote solver
// @Description Falls back to local generation when the solver is disabled, failing or its circuit is open.
// @Tags Solver
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Solver payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/solve [post]
func (h *SolverHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	result, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, withMeta(c, map[string]interface{}{"source": result.Source}))
}
