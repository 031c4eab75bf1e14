package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 200, cfg.Scheduler.MaxAttempts)
	assert.Equal(t, 2, cfg.Scheduler.BlocksPerCourse)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.ScheduleTTL)
	assert.Equal(t, CatalogSourceStatic, cfg.Catalog.Source)
	assert.False(t, cfg.Solver.Enabled)
	assert.True(t, cfg.Solver.FallbackToLocal)
	assert.Equal(t, uint32(3), cfg.Solver.BreakerFailureThreshold)
	assert.True(t, cfg.Exports.TermStart.IsZero())
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CATALOG_SOURCE", " Postgres ")
	v.Set("SOLVER_BASE_URL", "http://solver.local/")
	v.Set("SOLVER_TIMEOUT", "not-a-duration")
	v.Set("EXPORTS_TERM_START", "2025-03-03")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, CatalogSourcePostgres, cfg.Catalog.Source)
	assert.Equal(t, "http://solver.local", cfg.Solver.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Solver.Timeout)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), cfg.Exports.TermStart)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestUnknownCatalogSourceFallsBackToStatic(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CATALOG_SOURCE", "mongo")

	assert.Equal(t, CatalogSourceStatic, fromViper(v).Catalog.Source)
}
