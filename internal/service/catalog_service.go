package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

type catalogReader interface {
	ListCourses(ctx context.Context, semester int) ([]models.Course, error)
	FindCourse(ctx context.Context, id int) (*models.Course, error)
	ListProfessors(ctx context.Context) ([]models.Professor, error)
	ProfessorsForCourse(ctx context.Context, courseID int) ([]models.Professor, error)
}

const catalogCacheTTL = 15 * time.Minute

// CatalogService exposes the time grid and the course catalog.
type CatalogService struct {
	repo      catalogReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// TimeGrid returns the weekdays and daily slots.
func (s *CatalogService) TimeGrid() dto.TimeGridResponse {
	days := make([]dto.WeekdayView, 0, len(models.Weekdays))
	for _, d := range models.Weekdays {
		days = append(days, dto.WeekdayView{Day: d, Label: d.Label(), Code: d.Code()})
	}
	slots := make([]models.TimeSlot, len(models.TimeSlots))
	copy(slots, models.TimeSlots)
	return dto.TimeGridResponse{Days: days, Slots: slots}
}

// ListCourses returns the catalog, optionally filtered by semester.
func (s *CatalogService) ListCourses(ctx context.Context, query dto.CourseQuery) ([]models.Course, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course query")
	}

	return Remember(ctx, s.cache, catalogCoursesKey(query.Semester), catalogCacheTTL, func(ctx context.Context) ([]models.Course, error) {
		courses, err := s.repo.ListCourses(ctx, query.Semester)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
		}
		if courses == nil {
			courses = []models.Course{}
		}
		return courses, nil
	})
}

// GetCourse returns a single course.
func (s *CatalogService) GetCourse(ctx context.Context, id int) (*models.Course, error) {
	course, err := s.repo.FindCourse(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("course %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// ProfessorsForCourse lists who teaches a course.
func (s *CatalogService) ProfessorsForCourse(ctx context.Context, id int) ([]models.Professor, error) {
	if _, err := s.GetCourse(ctx, id); err != nil {
		return nil, err
	}
	profs, err := s.repo.ProfessorsForCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course professors")
	}
	if profs == nil {
		profs = []models.Professor{}
	}
	return profs, nil
}

// ListProfessors returns every professor.
func (s *CatalogService) ListProfessors(ctx context.Context) ([]models.Professor, error) {
	return Remember(ctx, s.cache, catalogProfessorsKey(), catalogCacheTTL, func(ctx context.Context) ([]models.Professor, error) {
		profs, err := s.repo.ListProfessors(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
		}
		if profs == nil {
			profs = []models.Professor{}
		}
		return profs, nil
	})
}
