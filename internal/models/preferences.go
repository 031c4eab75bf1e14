package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// OptimizationFlag switches an optional generator behaviour on.
type OptimizationFlag string

const (
	OptimizeMinimizeGaps OptimizationFlag = "minimize-gaps"
	OptimizeMorning      OptimizationFlag = "morning-classes"
	OptimizeAfternoon    OptimizationFlag = "afternoon-classes"
	OptimizeCompactDays  OptimizationFlag = "compact-days"
	OptimizeSpreadDays   OptimizationFlag = "spread-days"
	OptimizeNoFridays    OptimizationFlag = "no-fridays"
)

// OptimizationFlags lists every recognised flag.
var OptimizationFlags = []OptimizationFlag{
	OptimizeMinimizeGaps,
	OptimizeMorning,
	OptimizeAfternoon,
	OptimizeCompactDays,
	OptimizeSpreadDays,
	OptimizeNoFridays,
}

// Valid reports whether f is a recognised flag.
func (f OptimizationFlag) Valid() bool {
	for _, known := range OptimizationFlags {
		if f == known {
			return true
		}
	}
	return false
}

// BlockedTimeSlot marks a (day, slot) cell the student cannot attend.
type BlockedTimeSlot struct {
	ID         string  `json:"id,omitempty"`
	Day        Weekday `json:"day"`
	TimeSlotID int     `json:"timeSlotId"`
	Reason     string  `json:"reason,omitempty"`
}

// ProfessorPreference names the preferred professor for a course.
type ProfessorPreference struct {
	CourseID    int    `json:"courseId"`
	ProfessorID string `json:"professorId"`
}

// PreferenceSet is the generator input besides the course list.
type PreferenceSet struct {
	BlockedSlots         []BlockedTimeSlot     `json:"blockedSlots"`
	Optimizations        []OptimizationFlag    `json:"optimizations"`
	ProfessorPreferences []ProfessorPreference `json:"professorPreferences,omitempty"`
	MaxDailyHours        int                   `json:"maxDailyHours,omitempty"`
	PreferredDays        []Weekday             `json:"preferredDays,omitempty"`
}

// Has reports whether flag is enabled.
func (p PreferenceSet) Has(flag OptimizationFlag) bool {
	for _, f := range p.Optimizations {
		if f == flag {
			return true
		}
	}
	return false
}

// DefaultPreferences returns the preferences applied to students without a stored profile.
func DefaultPreferences() PreferenceSet {
	return PreferenceSet{
		BlockedSlots:  []BlockedTimeSlot{},
		Optimizations: []OptimizationFlag{OptimizeMinimizeGaps},
		MaxDailyHours: 6,
	}
}

// PreferenceProfile stores a student's preferences.
type PreferenceProfile struct {
	StudentID   string         `db:"student_id" json:"student_id"`
	Preferences types.JSONText `db:"preferences" json:"preferences"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
