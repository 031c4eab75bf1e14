package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Aliagaaaaaa/horarios-api/api/swagger"
	"github.com/Aliagaaaaaa/horarios-api/internal/handler"
	internalmiddleware "github.com/Aliagaaaaaa/horarios-api/internal/middleware"
	"github.com/Aliagaaaaaa/horarios-api/internal/models"
	"github.com/Aliagaaaaaa/horarios-api/internal/repository"
	"github.com/Aliagaaaaaa/horarios-api/internal/service"
	"github.com/Aliagaaaaaa/horarios-api/pkg/cache"
	"github.com/Aliagaaaaaa/horarios-api/pkg/config"
	"github.com/Aliagaaaaaa/horarios-api/pkg/database"
	"github.com/Aliagaaaaaa/horarios-api/pkg/jobs"
	"github.com/Aliagaaaaaa/horarios-api/pkg/logger"
	corsmiddleware "github.com/Aliagaaaaaa/horarios-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Aliagaaaaaa/horarios-api/pkg/middleware/requestid"
	"github.com/Aliagaaaaaa/horarios-api/pkg/solver"
	"github.com/Aliagaaaaaa/horarios-api/pkg/storage"
)

// @title Horarios API
// @version 1.0.0
// @description Weekly course timetable generation, preferences and exports
// @BasePath /api/v1
// @schemes http

const sweepInterval = 5 * time.Minute

type catalogStore interface {
	ListCourses(ctx context.Context, semester int) ([]models.Course, error)
	FindCourse(ctx context.Context, id int) (*models.Course, error)
	FindCourseByCode(ctx context.Context, code string) (*models.Course, error)
	ListProfessors(ctx context.Context) ([]models.Professor, error)
	FindProfessor(ctx context.Context, id string) (*models.Professor, error)
	ProfessorsForCourse(ctx context.Context, courseID int) ([]models.Professor, error)
}

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(db.DB, logr); err != nil {
				logr.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		checks["postgres"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "horarios:")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, cfg.Scheduler.CacheEnabled && redisClient != nil)

	catalog := buildCatalog(cfg, db, logr)
	catalogSvc := service.NewCatalogService(catalog, cacheSvc, validate, logr)

	profiles := service.NewPreferenceProfileService(nil, validate, logr)
	generatorDeps := service.ScheduleGeneratorDeps{Cache: cacheSvc, Metrics: metrics}
	if db != nil {
		profiles = service.NewPreferenceProfileService(repository.NewPreferenceProfileRepository(db), validate, logr)
		generatorDeps.Saved = repository.NewSavedScheduleRepository(db)
		generatorDeps.Blocks = repository.NewSavedScheduleBlockRepository(db)
		generatorDeps.Tx = db
	}
	generatorDeps.Profiles = profiles

	generator := service.NewScheduleGeneratorService(catalog, generatorDeps, validate, logr, service.ScheduleGeneratorConfig{
		MaxAttempts:     cfg.Scheduler.MaxAttempts,
		BlocksPerCourse: cfg.Scheduler.BlocksPerCourse,
		MaxCandidates:   cfg.Scheduler.MaxCandidates,
		ScheduleTTL:     cfg.Scheduler.ScheduleTTL,
		CacheTTL:        cfg.Scheduler.CacheTTL,
	})
	go sweepSchedules(ctx, generator)

	var remote *solver.Client
	if cfg.Solver.Enabled {
		remote = solver.NewClient(solver.Config{
			BaseURL:          cfg.Solver.BaseURL,
			Timeout:          cfg.Solver.Timeout,
			MaxRequests:      cfg.Solver.BreakerMaxRequests,
			Interval:         cfg.Solver.BreakerInterval,
			OpenTimeout:      cfg.Solver.BreakerTimeout,
			FailureThreshold: cfg.Solver.BreakerFailureThreshold,
			Logger:           logr,
			OnStateChange: func(_, to gobreaker.State) {
				metrics.SetSolverBreakerState(int(to))
			},
		}, nil)
	}
	solverSvc := service.NewSolverService(nil, generator, catalog, metrics, validate, logr, service.SolverServiceConfig{FallbackToLocal: true})
	if remote != nil {
		solverSvc = service.NewSolverService(remote, generator, catalog, metrics, validate, logr, service.SolverServiceConfig{FallbackToLocal: cfg.Solver.FallbackToLocal})
	}

	exportJobs, exportQueue := buildExports(ctx, cfg, db, generator, metrics, validate, logr)
	defer exportQueue.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Schedules:   handler.NewScheduleGeneratorHandler(generator),
		Preferences: handler.NewSchedulePreferenceHandler(profiles, service.NewBlockedSlotImportService(cfg.Exports.Timezone, logr)),
		Solver:      handler.NewSolverHandler(solverSvc),
		Exports:     handler.NewExportHandler(exportJobs),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "catalog", cfg.Catalog.Source, "persistence", db != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildCatalog(cfg *config.Config, db *sqlx.DB, logr *zap.Logger) catalogStore {
	if cfg.Catalog.Source == config.CatalogSourcePostgres {
		if db != nil {
			return repository.NewCatalogRepository(db)
		}
		logr.Warn("postgres catalog requested without persistence, using bundled catalog")
	}
	static, err := repository.NewStaticCatalog()
	if err != nil {
		logr.Fatal("failed to load bundled catalog", zap.Error(err))
	}
	return static
}

func buildExports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	generator *service.ScheduleGeneratorService,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*service.ExportJobService, *jobs.Queue) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(generator, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
		TermStart: cfg.Exports.TermStart,
		TermWeeks: cfg.Exports.TermWeeks,
		Timezone:  cfg.Exports.Timezone,
	}, logr, service.ExportRenderers{})

	var repo exportJobRepository
	if db != nil {
		repo = repository.NewExportJobRepository(db)
	} else {
		repo = repository.NewMemoryExportJobRepository()
	}

	worker := service.NewExportWorker(repo, exporter, metrics, cfg.Exports.WorkerRetries, logr)
	var exportJobs *service.ExportJobService
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:       cfg.Exports.WorkerConcurrency,
		MaxRetries:    cfg.Exports.WorkerRetries,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: 30 * time.Second,
		Logger:        logr,
		OnGiveUp: func(job jobs.Job, cause error) {
			exportJobs.MarkAbandoned(job, cause)
		},
	})
	exportJobs = service.NewExportJobService(repo, generator, queue, exporter, metrics, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	queue.Start(ctx)
	exportJobs.RecoverPendingJobs(ctx)
	exportJobs.StartCleanup(ctx)
	return exportJobs, queue
}

func sweepSchedules(ctx context.Context, generator *service.ScheduleGeneratorService) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			generator.SweepExpired()
		}
	}
}
