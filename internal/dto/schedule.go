package dto

import "github.com/Aliagaaaaaa/horarios-api/internal/models"

// BlockedSlotInput marks a cell the student cannot attend.
type BlockedSlotInput struct {
	Day        string `json:"day" validate:"required"`
	TimeSlotID int    `json:"timeSlotId" validate:"required,min=1,max=9"`
	Reason     string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// ProfessorPreferenceInput pins a preferred professor for a course.
type ProfessorPreferenceInput struct {
	CourseID    int    `json:"courseId" validate:"required,min=1"`
	ProfessorID string `json:"professorId" validate:"required"`
}

// PreferencesInput is the wire form of a preference set.
type PreferencesInput struct {
	BlockedSlots         []BlockedSlotInput         `json:"blockedSlots" validate:"omitempty,max=45,dive"`
	Optimizations        []string                   `json:"optimizations" validate:"omitempty,dive,oneof=minimize-gaps morning-classes afternoon-classes compact-days spread-days no-fridays"`
	ProfessorPreferences []ProfessorPreferenceInput `json:"professorPreferences" validate:"omitempty,dive"`
	MaxDailyHours        int                        `json:"maxDailyHours" validate:"omitempty,min=1,max=12"`
	PreferredDays        []string                   `json:"preferredDays" validate:"omitempty,max=5"`
}

// GenerateScheduleRequest asks for a timetable over the given courses.
// When Preferences is nil the student's stored profile, or the defaults, apply.
type GenerateScheduleRequest struct {
	CourseIDs   []int             `json:"courseIds" validate:"required,min=1,max=60"`
	Preferences *PreferencesInput `json:"preferences"`
	StudentID   string            `json:"studentId" validate:"omitempty,max=128"`
	Seed        *int64            `json:"seed"`
	Candidates  int               `json:"candidates" validate:"omitempty,min=1,max=20"`
}

// RegenerateScheduleRequest reruns a cached schedule, optionally with new preferences.
type RegenerateScheduleRequest struct {
	Preferences *PreferencesInput `json:"preferences"`
	Seed        *int64            `json:"seed"`
}

// MaxCoursesPerRequest caps the distinct courses of one generation. It
// mirrors the max on GenerateScheduleRequest.CourseIDs.
const MaxCoursesPerRequest = 60

// StatelessRegenerateRequest reruns a schedule supplied by the client.
type StatelessRegenerateRequest struct {
	Schedule    models.Schedule   `json:"schedule"`
	Preferences *PreferencesInput `json:"preferences"`
	Seed        *int64            `json:"seed"`
}

// ScheduleResult is a schedule with its quality figures.
type ScheduleResult struct {
	*models.Schedule
	Score            float64 `json:"score"`
	GapPenalty       int     `json:"gapPenalty"`
	TotalWeeklyHours float64 `json:"totalWeeklyHours"`
}

// GenerateScheduleResponse returns the best schedule and any ranked alternatives.
type GenerateScheduleResponse struct {
	Schedule     ScheduleResult   `json:"schedule"`
	Alternatives []ScheduleResult `json:"alternatives,omitempty"`
}

// SaveScheduleRequest persists a cached schedule for a student.
type SaveScheduleRequest struct {
	StudentID string `json:"studentId" validate:"required,max=128"`
	Name      string `json:"name" validate:"omitempty,max=120"`
}

// SavedScheduleResponse is a persisted schedule with its blocks.
type SavedScheduleResponse struct {
	models.SavedSchedule
	Blocks []models.SavedScheduleBlock `json:"blocks"`
}

// TimeGridResponse describes the fixed weekly grid.
type TimeGridResponse struct {
	Days  []WeekdayView     `json:"days"`
	Slots []models.TimeSlot `json:"slots"`
}

// WeekdayView is a weekday with its display forms.
type WeekdayView struct {
	Day   models.Weekday `json:"day"`
	Label string         `json:"label"`
	Code  string         `json:"code"`
}

// CourseQuery filters the catalog listing.
type CourseQuery struct {
	Semester int `form:"semester" validate:"omitempty,min=1,max=12"`
}
