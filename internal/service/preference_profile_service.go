package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

type preferenceProfileRepository interface {
	GetByStudent(ctx context.Context, studentID string) (*models.PreferenceProfile, error)
	Upsert(ctx context.Context, profile *models.PreferenceProfile) error
}

// PreferenceProfileService stores per-student generator preferences.
type PreferenceProfileService struct {
	repo      preferenceProfileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPreferenceProfileService builds the service. A nil repo serves defaults only.
func NewPreferenceProfileService(repo preferenceProfileRepository, validate *validator.Validate, logger *zap.Logger) *PreferenceProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceProfileService{repo: repo, validator: validate, logger: logger}
}

// Get returns stored preferences or the defaults.
func (s *PreferenceProfileService) Get(ctx context.Context, studentID string) (*dto.PreferenceProfileResponse, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	defaults := &dto.PreferenceProfileResponse{StudentID: studentID, Preferences: models.DefaultPreferences()}
	if s.repo == nil {
		return defaults, nil
	}

	profile, err := s.repo.GetByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaults, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preference profile")
	}

	var prefs models.PreferenceSet
	if err := json.Unmarshal(profile.Preferences, &prefs); err != nil {
		s.logger.Warn("stored preferences unreadable, serving defaults", zap.String("student_id", studentID), zap.Error(err))
		return defaults, nil
	}
	updated := profile.UpdatedAt
	return &dto.PreferenceProfileResponse{
		StudentID:   studentID,
		Preferences: prefs,
		Stored:      true,
		UpdatedAt:   &updated,
	}, nil
}

// Resolve returns the effective preference set for a student.
func (s *PreferenceProfileService) Resolve(ctx context.Context, studentID string) (models.PreferenceSet, error) {
	profile, err := s.Get(ctx, studentID)
	if err != nil {
		return models.PreferenceSet{}, err
	}
	return profile.Preferences, nil
}

// Update replaces a student's stored preferences.
func (s *PreferenceProfileService) Update(ctx context.Context, studentID string, in dto.PreferencesInput) (*dto.PreferenceProfileResponse, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferences payload")
	}
	if s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "preference persistence is disabled")
	}

	prefs, err := buildPreferenceSet(&in)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(prefs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode preferences")
	}

	profile := &models.PreferenceProfile{StudentID: studentID, Preferences: payload}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store preference profile")
	}
	s.logger.Info("preference profile updated",
		zap.String("student_id", studentID),
		zap.Int("blocked_slots", len(prefs.BlockedSlots)),
		zap.Int("optimizations", len(prefs.Optimizations)),
	)

	updated := profile.UpdatedAt
	return &dto.PreferenceProfileResponse{StudentID: studentID, Preferences: prefs, Stored: true, UpdatedAt: &updated}, nil
}

// buildPreferenceSet converts wire preferences, normalising day names and
// collapsing duplicate blocked cells. A nil input yields an empty set.
func buildPreferenceSet(in *dto.PreferencesInput) (models.PreferenceSet, error) {
	prefs := models.PreferenceSet{
		BlockedSlots:  []models.BlockedTimeSlot{},
		Optimizations: []models.OptimizationFlag{},
	}
	if in == nil {
		return prefs, nil
	}

	seen := make(map[slotKey]struct{}, len(in.BlockedSlots))
	for _, b := range in.BlockedSlots {
		day, ok := models.ParseWeekday(b.Day)
		if !ok {
			return prefs, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q in blocked slots", b.Day))
		}
		if _, ok := models.TimeSlotByID(b.TimeSlotID); !ok {
			return prefs, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown time slot %d in blocked slots", b.TimeSlotID))
		}
		key := slotKey{Day: day, Time: b.TimeSlotID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		prefs.BlockedSlots = append(prefs.BlockedSlots, models.BlockedTimeSlot{
			ID:         fmt.Sprintf("%s-%d", day, b.TimeSlotID),
			Day:        day,
			TimeSlotID: b.TimeSlotID,
			Reason:     b.Reason,
		})
	}

	for _, raw := range in.Optimizations {
		flag := models.OptimizationFlag(raw)
		if !flag.Valid() {
			return prefs, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown optimization %q", raw))
		}
		if !prefs.Has(flag) {
			prefs.Optimizations = append(prefs.Optimizations, flag)
		}
	}

	for _, p := range in.ProfessorPreferences {
		prefs.ProfessorPreferences = append(prefs.ProfessorPreferences, models.ProfessorPreference{
			CourseID:    p.CourseID,
			ProfessorID: p.ProfessorID,
		})
	}

	prefs.MaxDailyHours = in.MaxDailyHours
	for _, raw := range in.PreferredDays {
		day, ok := models.ParseWeekday(raw)
		if !ok {
			return prefs, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown preferred day %q", raw))
		}
		prefs.PreferredDays = append(prefs.PreferredDays, day)
	}
	return prefs, nil
}
