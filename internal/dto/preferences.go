package dto

import (
	"time"

	"github.com/Aliagaaaaaa/horarios-api/internal/models"
)

// PreferenceProfileResponse is a student's effective preferences.
type PreferenceProfileResponse struct {
	StudentID   string               `json:"studentId"`
	Preferences models.PreferenceSet `json:"preferences"`
	Stored      bool                 `json:"stored"`
	UpdatedAt   *time.Time           `json:"updatedAt,omitempty"`
}
