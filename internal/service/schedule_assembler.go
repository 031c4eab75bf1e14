package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// assemblyInput carries what the pipeline learnt about a run.
type assemblyInput struct {
	Blocks      []models.ScheduleBlock
	Unfulfilled []models.UnfulfilledCourse
	Skipped     []int
	Blocked     blockedSet
	Seed        int64
}

// ScheduleAssembler stamps the final block list with an identity.
type ScheduleAssembler struct {
	clock func() time.Time
	newID func() string
}

// NewScheduleAssembler returns an assembler using clock, or UTC wall time when nil.
func NewScheduleAssembler(clock func() time.Time) *ScheduleAssembler {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ScheduleAssembler{clock: clock, newID: newScheduleID}
}

// newScheduleID returns a time-ordered identifier.
func newScheduleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "schedule-" + id.String()
}

// Assemble builds the immutable Schedule for a run.
func (a *ScheduleAssembler) Assemble(in assemblyInput) *models.Schedule {
	blocks := make([]models.ScheduleBlock, len(in.Blocks))
	copy(blocks, in.Blocks)

	status := models.ScheduleStatusComplete
	if len(in.Unfulfilled) > 0 {
		status = models.ScheduleStatusPartial
	}

	return &models.Schedule{
		ID:               a.newID(),
		Blocks:           blocks,
		CreatedAt:        a.clock(),
		Status:           status,
		Unfulfilled:      in.Unfulfilled,
		SkippedCourseIDs: in.Skipped,
		Warnings:         auditBlocks(blocks, in.Blocked),
		Seed:             in.Seed,
	}
}

// auditBlocks reports blocks sitting on blocked cells or sharing a cell with
// an earlier block. Only the optimization passes can produce either.
func auditBlocks(blocks []models.ScheduleBlock, blocked blockedSet) []models.ScheduleWarning {
	var warnings []models.ScheduleWarning
	occupied := make(map[slotKey]int, len(blocks))
	for _, b := range blocks {
		key := slotKey{Day: b.Day, Time: b.TimeSlotID}
		if reason, ok := blocked[key]; ok {
			msg := fmt.Sprintf("%s lands on a blocked slot", b.CourseCode)
			if reason != "" {
				msg = fmt.Sprintf("%s (%s)", msg, reason)
			}
			warnings = append(warnings, models.ScheduleWarning{
				Code:       models.WarningBlockedSlot,
				CourseID:   b.CourseID,
				Day:        b.Day,
				TimeSlotID: b.TimeSlotID,
				Message:    msg,
			})
		}
		if other, ok := occupied[key]; ok {
			warnings = append(warnings, models.ScheduleWarning{
				Code:       models.WarningCollision,
				CourseID:   b.CourseID,
				Day:        b.Day,
				TimeSlotID: b.TimeSlotID,
				Message:    fmt.Sprintf("%s collides with course %d", b.CourseCode, other),
			})
			continue
		}
		occupied[key] = b.CourseID
	}
	return warnings
}
