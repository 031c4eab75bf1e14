package dto

import "github.com/Aliagaaaaaa/horarios-api/pkg/solver"

// SolveRequest mirrors the remote solver payload. CourseIDs and Seed only
// affect the local fallback.
type SolveRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	PassedCourses   []string        `json:"ramos_pasados"`
	PriorityCourses []string        `json:"ramos_prioritarios" validate:"omitempty,max=60"`
	PreferredSlots  []string        `json:"horarios_preferidos"`
	ForbiddenSlots  []string        `json:"horarios_prohibidos"`
	Curriculum      string          `json:"malla"`
	Sheet           string          `json:"sheet,omitempty"`
	StudentRanking  *float64        `json:"student_ranking" validate:"omitempty,min=0,max=1"`
	Filters         *solver.Filters `json:"filtros"`
	Optimizations   []string        `json:"optimizations" validate:"omitempty,dive,oneof=minimize-gaps morning-classes afternoon-classes compact-days spread-days no-fridays"`
	CourseIDs       []int           `json:"courseIds"`
	Seed            *int64          `json:"seed"`
}

// Solve sources.
const (
	SolveSourceRemote        = "remote"
	SolveSourceLocal         = "local"
	SolveSourceLocalFallback = "local_fallback"
)

// SolveResponse returns solver solutions and, when produced locally, the schedule.
type SolveResponse struct {
	Source    string            `json:"source"`
	Solutions []solver.Solution `json:"soluciones"`
	Schedule  *ScheduleResult   `json:"schedule,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
}
