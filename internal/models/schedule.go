package models

import (
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleStatus distinguishes complete from partial placements.
type ScheduleStatus string

const (
	ScheduleStatusComplete ScheduleStatus = "COMPLETE"
	ScheduleStatusPartial  ScheduleStatus = "PARTIAL"
)

// ScheduleBlock is one weekly meeting of a course.
type ScheduleBlock struct {
	CourseID   int        `json:"courseId"`
	CourseCode string     `json:"courseCode"`
	CourseName string     `json:"courseName"`
	Day        Weekday    `json:"day"`
	TimeSlotID int        `json:"timeSlotId"`
	Professor  *Professor `json:"professor,omitempty"`
}

// UnfulfilledCourse reports a course that received fewer blocks than requested.
type UnfulfilledCourse struct {
	CourseID  int    `json:"courseId"`
	Requested int    `json:"requested"`
	Placed    int    `json:"placed"`
	Reason    string `json:"reason"`
}

// ScheduleWarning flags a block that an optimization pass left on a blocked
// or already occupied cell.
type ScheduleWarning struct {
	Code       string  `json:"code"`
	CourseID   int     `json:"courseId"`
	Day        Weekday `json:"day"`
	TimeSlotID int     `json:"timeSlotId"`
	Message    string  `json:"message"`
}

// Warning codes.
const (
	WarningBlockedSlot = "BLOCKED_SLOT"
	WarningCollision   = "COLLISION"
)

// Schedule is an immutable generation result.
type Schedule struct {
	ID               string              `json:"id"`
	Blocks           []ScheduleBlock     `json:"blocks"`
	CreatedAt        time.Time           `json:"createdAt"`
	Status           ScheduleStatus      `json:"status"`
	Unfulfilled      []UnfulfilledCourse `json:"unfulfilled,omitempty"`
	SkippedCourseIDs []int               `json:"skippedCourseIds,omitempty"`
	Warnings         []ScheduleWarning   `json:"warnings,omitempty"`
	Seed             int64               `json:"seed"`
}

// CourseIDs returns the distinct course ids in first-appearance order.
func (s *Schedule) CourseIDs() []int {
	seen := make(map[int]struct{}, len(s.Blocks))
	ids := make([]int, 0, len(s.Blocks)/2+1)
	for _, b := range s.Blocks {
		if _, ok := seen[b.CourseID]; ok {
			continue
		}
		seen[b.CourseID] = struct{}{}
		ids = append(ids, b.CourseID)
	}
	return ids
}

// SavedSchedule is a schedule persisted for a student.
type SavedSchedule struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	Name        string         `db:"name" json:"name"`
	Status      ScheduleStatus `db:"status" json:"status"`
	Preferences types.JSONText `db:"preferences" json:"preferences"`
	GeneratedAt time.Time      `db:"generated_at" json:"generated_at"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// SavedScheduleBlock is a persisted block row.
type SavedScheduleBlock struct {
	ID            string  `db:"id" json:"id"`
	ScheduleID    string  `db:"schedule_id" json:"schedule_id"`
	CourseID      int     `db:"course_id" json:"course_id"`
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseName    string  `db:"course_name" json:"course_name"`
	Day           Weekday `db:"day" json:"day"`
	TimeSlotID    int     `db:"time_slot_id" json:"time_slot_id"`
	ProfessorID   *string `db:"professor_id" json:"professor_id,omitempty"`
	ProfessorName *string `db:"professor_name" json:"professor_name,omitempty"`
}

// BlocksForDay returns the blocks on day ordered by slot.
func (s *Schedule) BlocksForDay(day Weekday) []ScheduleBlock {
	var out []ScheduleBlock
	for _, b := range s.Blocks {
		if b.Day == day {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeSlotID < out[j].TimeSlotID })
	return out
}

// BlockAt returns the first block placed on (day, slot).
func (s *Schedule) BlockAt(day Weekday, slot int) (ScheduleBlock, bool) {
	for _, b := range s.Blocks {
		if b.Day == day && b.TimeSlotID == slot {
			return b, true
		}
	}
	return ScheduleBlock{}, false
}

// TotalWeeklyHours is the contact time of all blocks, rounded to two decimals.
func (s *Schedule) TotalWeeklyHours() float64 {
	hours := float64(len(s.Blocks)*SlotMinutes) / 60
	return math.Round(hours*100) / 100
}
