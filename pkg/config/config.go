package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Catalog sources.
const (
	CatalogSourceStatic   = "static"
	CatalogSourcePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Catalog   CatalogConfig
	Solver    SolverConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable generator.
type SchedulerConfig struct {
	MaxAttempts     int
	BlocksPerCourse int
	ScheduleTTL     time.Duration
	MaxCandidates   int
	CacheEnabled    bool
	CacheTTL        time.Duration
}

// CatalogConfig selects where course and professor records come from.
type CatalogConfig struct {
	Source string
}

// SolverConfig configures the remote solver client and its circuit breaker.
type SolverConfig struct {
	Enabled                 bool
	BaseURL                 string
	Timeout                 time.Duration
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32
	FallbackToLocal         bool
}

// ExportsConfig configures asynchronous timetable exports.
type ExportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	TermStart         time.Time
	TermWeeks         int
	Timezone          string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("ENABLE_PERSISTENCE"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_SCHEDULE_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		MaxAttempts:     v.GetInt("SCHEDULER_MAX_ATTEMPTS"),
		BlocksPerCourse: v.GetInt("SCHEDULER_BLOCKS_PER_COURSE"),
		ScheduleTTL:     parseDuration(v.GetString("SCHEDULER_SCHEDULE_TTL"), 2*time.Hour),
		MaxCandidates:   v.GetInt("SCHEDULER_MAX_CANDIDATES"),
		CacheEnabled:    v.GetBool("ENABLE_SCHEDULE_CACHE"),
		CacheTTL:        parseDuration(v.GetString("SCHEDULER_CACHE_TTL"), 24*time.Hour),
	}

	source := strings.ToLower(strings.TrimSpace(v.GetString("CATALOG_SOURCE")))
	if source != CatalogSourcePostgres {
		source = CatalogSourceStatic
	}
	cfg.Catalog = CatalogConfig{Source: source}

	cfg.Solver = SolverConfig{
		Enabled:                 v.GetBool("ENABLE_REMOTE_SOLVER"),
		BaseURL:                 strings.TrimRight(v.GetString("SOLVER_BASE_URL"), "/"),
		Timeout:                 parseDuration(v.GetString("SOLVER_TIMEOUT"), 20*time.Second),
		BreakerMaxRequests:      uint32(v.GetInt("SOLVER_BREAKER_MAX_REQUESTS")),
		BreakerInterval:         parseDuration(v.GetString("SOLVER_BREAKER_INTERVAL"), time.Minute),
		BreakerTimeout:          parseDuration(v.GetString("SOLVER_BREAKER_TIMEOUT"), 30*time.Second),
		BreakerFailureThreshold: uint32(v.GetInt("SOLVER_BREAKER_FAILURE_THRESHOLD")),
		FallbackToLocal:         v.GetBool("SOLVER_FALLBACK_TO_LOCAL"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
		TermStart:         parseDate(v.GetString("EXPORTS_TERM_START")),
		TermWeeks:         v.GetInt("EXPORTS_TERM_WEEKS"),
		Timezone:          v.GetString("EXPORTS_TIMEZONE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_PERSISTENCE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "horarios")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_MAX_ATTEMPTS", 200)
	v.SetDefault("SCHEDULER_BLOCKS_PER_COURSE", 2)
	v.SetDefault("SCHEDULER_SCHEDULE_TTL", "2h")
	v.SetDefault("SCHEDULER_MAX_CANDIDATES", 5)
	v.SetDefault("SCHEDULER_CACHE_TTL", "24h")

	v.SetDefault("CATALOG_SOURCE", CatalogSourceStatic)

	v.SetDefault("ENABLE_REMOTE_SOLVER", false)
	v.SetDefault("SOLVER_BASE_URL", "http://localhost:8000")
	v.SetDefault("SOLVER_TIMEOUT", "20s")
	v.SetDefault("SOLVER_BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("SOLVER_BREAKER_INTERVAL", "1m")
	v.SetDefault("SOLVER_BREAKER_TIMEOUT", "30s")
	v.SetDefault("SOLVER_BREAKER_FAILURE_THRESHOLD", 3)
	v.SetDefault("SOLVER_FALLBACK_TO_LOCAL", true)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
	v.SetDefault("EXPORTS_TERM_START", "")
	v.SetDefault("EXPORTS_TERM_WEEKS", 16)
	v.SetDefault("EXPORTS_TIMEZONE", "America/Santiago")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// parseDate accepts YYYY-MM-DD; an empty or malformed value yields the zero time.
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
