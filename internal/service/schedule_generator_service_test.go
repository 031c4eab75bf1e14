package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/internal/dto"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	"github.com/Aliagaaaaaa/horarios-api/internal/repository"
	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

func int64Ptr(v int64) *int64 { return &v }

type generatorFixture struct {
	now      time.Time
	saved    *savedScheduleRepoStub
	blocks   *savedScheduleBlockRepoStub
	mock     sqlmock.Sqlmock
	profiles preferenceResolver
	service  *ScheduleGeneratorService
}

func newGeneratorFixture(t *testing.T, persistence bool) *generatorFixture {
	t.Helper()
	catalog, err := repository.NewStaticCatalog()
	require.NoError(t, err)

	fx := &generatorFixture{now: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
	deps := ScheduleGeneratorDeps{Profiles: fx.resolver(), Metrics: NewMetricsService()}
	if persistence {
		tx, mock := newTxProviderMock(t)
		fx.mock = mock
		fx.saved = &savedScheduleRepoStub{items: map[string]models.SavedSchedule{}}
		fx.blocks = &savedScheduleBlockRepoStub{items: map[string][]models.SavedScheduleBlock{}}
		deps.Saved, deps.Blocks, deps.Tx = fx.saved, fx.blocks, tx
	}
	fx.service = NewScheduleGeneratorService(catalog, deps, nil, nil, ScheduleGeneratorConfig{
		MaxCandidates: 3,
		ScheduleTTL:   time.Hour,
		Clock:         func() time.Time { return fx.now },
	})
	return fx
}

func (fx *generatorFixture) resolver() preferenceResolver {
	return resolverFunc(func(ctx context.Context, studentID string) (models.PreferenceSet, error) {
		if fx.profiles != nil {
			return fx.profiles.Resolve(ctx, studentID)
		}
		return models.DefaultPreferences(), nil
	})
}

type resolverFunc func(ctx context.Context, studentID string) (models.PreferenceSet, error)

func (f resolverFunc) Resolve(ctx context.Context, studentID string) (models.PreferenceSet, error) {
	return f(ctx, studentID)
}

func TestScheduleGeneratorServiceGenerateSuccess(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	resp, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		CourseIDs:   []int{1, 2, 4},
		Preferences: &dto.PreferencesInput{Optimizations: []string{"minimize-gaps"}},
		Seed:        int64Ptr(9),
	})
	require.NoError(t, err)

	schedule := resp.Schedule
	require.Len(t, schedule.Blocks, 6)
	assert.Equal(t, models.ScheduleStatusComplete, schedule.Status)
	assert.Equal(t, 0, schedule.GapPenalty)
	assert.Equal(t, 100.0, schedule.Score)
	assert.Equal(t, 8.0, schedule.TotalWeeklyHours)
	assert.Equal(t, int64(9), schedule.Seed)
	assert.ElementsMatch(t, []int{1, 2, 4}, schedule.CourseIDs())
	assert.Empty(t, resp.Alternatives)

	cached, err := fx.service.Get(context.Background(), schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.Blocks, cached.Blocks)
}

func TestScheduleGeneratorServiceSkipsUnknownAndDuplicateCourses(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	resp, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		CourseIDs: []int{4, 999, 4},
		Seed:      int64Ptr(1),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Schedule.Blocks, 2)
	assert.Equal(t, []int{999}, resp.Schedule.SkippedCourseIDs)
	assert.Equal(t, models.ScheduleStatusComplete, resp.Schedule.Status)
}

func TestScheduleGeneratorServiceAttachesPreferredProfessor(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	resp, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		CourseIDs: []int{1, 2},
		Preferences: &dto.PreferencesInput{ProfessorPreferences: []dto.ProfessorPreferenceInput{
			{CourseID: 1, ProfessorID: "prof-2"},
			{CourseID: 2, ProfessorID: "prof-missing"},
		}},
		Seed: int64Ptr(3),
	})
	require.NoError(t, err)
	for _, b := range resp.Schedule.Blocks {
		if b.CourseID == 1 {
			require.NotNil(t, b.Professor)
			assert.Equal(t, "Dra. María González", b.Professor.Name)
		} else {
			assert.Nil(t, b.Professor)
		}
	}
}

func TestScheduleGeneratorServiceRanksCandidates(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	resp, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		CourseIDs:  []int{1, 2, 3, 4, 5},
		Candidates: 10,
		Seed:       int64Ptr(100),
	})
	require.NoError(t, err)
	require.Len(t, resp.Alternatives, 2)
	for _, alt := range resp.Alternatives {
		assert.GreaterOrEqual(t, resp.Schedule.Score, alt.Score)
		assert.NotEqual(t, resp.Schedule.ID, alt.ID)
		_, err := fx.service.Get(context.Background(), alt.ID)
		assert.NoError(t, err)
	}
}

func TestScheduleGeneratorServiceUsesStoredProfile(t *testing.T) {
	fx := newGeneratorFixture(t, false)
	fx.profiles = resolverFunc(func(ctx context.Context, studentID string) (models.PreferenceSet, error) {
		assert.Equal(t, "student-1", studentID)
		return models.PreferenceSet{Optimizations: []models.OptimizationFlag{models.OptimizeNoFridays}}, nil
	})

	resp, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		CourseIDs: []int{1, 2, 3, 4, 5},
		StudentID: "student-1",
		Seed:      int64Ptr(4),
	})
	require.NoError(t, err)
	for _, b := range resp.Schedule.Blocks {
		assert.NotEqual(t, models.Friday, b.Day)
	}
}

func TestScheduleGeneratorServiceGenerateValidation(t *testing.T) {
	fx := newGeneratorFixture(t, false)
	ctx := context.Background()

	_, err := fx.service.Generate(ctx, dto.GenerateScheduleRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{
		CourseIDs:   []int{1},
		Preferences: &dto.PreferencesInput{BlockedSlots: []dto.BlockedSlotInput{{Day: "SATURDAY", TimeSlotID: 1}}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{
		CourseIDs:   []int{1},
		Preferences: &dto.PreferencesInput{Optimizations: []string{"weekends"}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleGeneratorServiceRegenerate(t *testing.T) {
	fx := newGeneratorFixture(t, false)
	ctx := context.Background()

	first, err := fx.service.Generate(ctx, dto.GenerateScheduleRequest{
		CourseIDs:   []int{4, 1, 2},
		Preferences: &dto.PreferencesInput{BlockedSlots: []dto.BlockedSlotInput{{Day: "lunes", TimeSlotID: 1}}},
		Seed:        int64Ptr(5),
	})
	require.NoError(t, err)

	second, err := fx.service.Regenerate(ctx, first.Schedule.ID, dto.RegenerateScheduleRequest{Seed: int64Ptr(6)})
	require.NoError(t, err)
	assert.NotEqual(t, first.Schedule.ID, second.Schedule.ID)
	assert.Equal(t, first.Schedule.CourseIDs(), second.Schedule.CourseIDs())
	for _, b := range second.Schedule.Blocks {
		assert.False(t, b.Day == models.Monday && b.TimeSlotID == 1)
	}

	_, err = fx.service.Regenerate(ctx, "schedule-unknown", dto.RegenerateScheduleRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleGeneratorServiceRegenerateFromSchedule(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	resp, err := fx.service.RegenerateFromSchedule(context.Background(), dto.StatelessRegenerateRequest{
		Schedule: models.Schedule{
			Blocks: []models.ScheduleBlock{
				{CourseID: 3, Day: models.Monday, TimeSlotID: 1},
				{CourseID: 5, Day: models.Monday, TimeSlotID: 2},
				{CourseID: 3, Day: models.Tuesday, TimeSlotID: 1},
			},
			Unfulfilled: []models.UnfulfilledCourse{{CourseID: 2, Requested: 2}},
		},
		Seed: int64Ptr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 2}, resp.Schedule.CourseIDs())

	_, err = fx.service.RegenerateFromSchedule(context.Background(), dto.StatelessRegenerateRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleGeneratorServiceRegenerateFromScheduleCapsCourses(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	blocks := make([]models.ScheduleBlock, 0, dto.MaxCoursesPerRequest+1)
	for id := 1; id <= dto.MaxCoursesPerRequest+1; id++ {
		blocks = append(blocks, models.ScheduleBlock{CourseID: id, Day: models.Monday, TimeSlotID: 1})
	}

	_, err := fx.service.RegenerateFromSchedule(context.Background(), dto.StatelessRegenerateRequest{
		Schedule: models.Schedule{Blocks: blocks},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = fx.service.RegenerateFromSchedule(context.Background(), dto.StatelessRegenerateRequest{
		Schedule: models.Schedule{Blocks: blocks[:dto.MaxCoursesPerRequest]},
		Seed:     int64Ptr(1),
	})
	require.NoError(t, err)
}

func TestScheduleGeneratorServiceExpiredSchedule(t *testing.T) {
	fx := newGeneratorFixture(t, false)

	resp, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{CourseIDs: []int{1}})
	require.NoError(t, err)

	fx.now = fx.now.Add(2 * time.Hour)
	_, err = fx.service.Get(context.Background(), resp.Schedule.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleExpired))
	assert.Equal(t, 0, fx.service.SweepExpired())
}

func TestScheduleGeneratorServiceSave(t *testing.T) {
	fx := newGeneratorFixture(t, true)
	ctx := context.Background()

	resp, err := fx.service.Generate(ctx, dto.GenerateScheduleRequest{
		CourseIDs:   []int{1, 2},
		Preferences: &dto.PreferencesInput{ProfessorPreferences: []dto.ProfessorPreferenceInput{{CourseID: 1, ProfessorID: "prof-1"}}},
		Seed:        int64Ptr(2),
	})
	require.NoError(t, err)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	saved, err := fx.service.Save(ctx, resp.Schedule.ID, dto.SaveScheduleRequest{StudentID: "student-1", Name: "Plan A"})
	require.NoError(t, err)
	assert.Equal(t, resp.Schedule.ID, saved.ID)
	assert.Equal(t, fx.now, saved.GeneratedAt)
	require.Len(t, saved.Blocks, 4)
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	withProfessor := 0
	for _, b := range fx.blocks.items[saved.ID] {
		if b.ProfessorName != nil {
			withProfessor++
			assert.Equal(t, "Dr. Carlos Muñoz", *b.ProfessorName)
		}
	}
	assert.Equal(t, 2, withProfessor)

	list, err := fx.service.ListSaved(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	detail, err := fx.service.GetSaved(ctx, saved.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Blocks, 4)

	_, err = fx.service.Save(ctx, resp.Schedule.ID, dto.SaveScheduleRequest{StudentID: "student-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	require.NoError(t, fx.service.DeleteSaved(ctx, saved.ID))
	err = fx.service.DeleteSaved(ctx, saved.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleGeneratorServiceSaveRollsBackOnBlockFailure(t *testing.T) {
	fx := newGeneratorFixture(t, true)
	fx.blocks.err = sql.ErrConnDone
	ctx := context.Background()

	resp, err := fx.service.Generate(ctx, dto.GenerateScheduleRequest{CourseIDs: []int{1}})
	require.NoError(t, err)

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err = fx.service.Save(ctx, resp.Schedule.ID, dto.SaveScheduleRequest{StudentID: "student-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServicePersistenceDisabled(t *testing.T) {
	fx := newGeneratorFixture(t, false)
	ctx := context.Background()

	resp, err := fx.service.Generate(ctx, dto.GenerateScheduleRequest{CourseIDs: []int{1}})
	require.NoError(t, err)

	_, err = fx.service.Save(ctx, resp.Schedule.ID, dto.SaveScheduleRequest{StudentID: "student-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnavailable))
	_, err = fx.service.ListSaved(ctx, "student-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnavailable))
}

type savedScheduleRepoStub struct {
	items map[string]models.SavedSchedule
}

func (s *savedScheduleRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.SavedSchedule) error {
	s.items[schedule.ID] = *schedule
	return nil
}

func (s *savedScheduleRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.SavedSchedule, error) {
	var out []models.SavedSchedule
	for _, item := range s.items {
		if item.StudentID == studentID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *savedScheduleRepoStub) FindByID(ctx context.Context, id string) (*models.SavedSchedule, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *savedScheduleRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

type savedScheduleBlockRepoStub struct {
	items map[string][]models.SavedScheduleBlock
	err   error
}

func (s *savedScheduleBlockRepoStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.SavedScheduleBlock) error {
	if s.err != nil {
		return s.err
	}
	for _, b := range blocks {
		s.items[b.ScheduleID] = append(s.items[b.ScheduleID], b)
	}
	return nil
}

func (s *savedScheduleBlockRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.SavedScheduleBlock, error) {
	return s.items[scheduleID], nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
