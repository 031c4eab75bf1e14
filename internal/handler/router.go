package handler

import (
	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/Aliagaaaaaa/horarios-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Catalog     *CatalogHandler
	Schedules   *ScheduleGeneratorHandler
	Preferences *SchedulePreferenceHandler
	Solver      *SolverHandler
	Exports     *ExportHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts observability endpoints on root and the API on prefix.
// Nil handlers leave their routes unregistered.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	api.Use(internalmiddleware.WithResponseMeta())

	if h.Metrics != nil {
		api.GET("/metrics/system", h.Metrics.System)
	}
	if h.Catalog != nil {
		api.GET("/timeslots", h.Catalog.TimeSlots)
		api.GET("/courses", h.Catalog.ListCourses)
		api.GET("/courses/:id", h.Catalog.GetCourse)
		api.GET("/courses/:id/professors", h.Catalog.CourseProfessors)
		api.GET("/professors", h.Catalog.ListProfessors)
	}
	if h.Schedules != nil {
		api.POST("/schedules/generate", h.Schedules.Generate)
		api.POST("/schedules/regenerate", h.Schedules.RegenerateStateless)
		api.GET("/schedules/:id", h.Schedules.Get)
		api.POST("/schedules/:id/regenerate", h.Schedules.Regenerate)
		api.POST("/schedules/:id/save", h.Schedules.Save)
		api.GET("/students/:studentId/schedules", h.Schedules.ListSaved)
		api.GET("/saved-schedules/:id", h.Schedules.GetSaved)
		api.DELETE("/saved-schedules/:id", h.Schedules.DeleteSaved)
	}
	if h.Solver != nil {
		api.POST("/schedules/solve", h.Solver.Solve)
	}
	if h.Preferences != nil {
		api.GET("/students/:studentId/preferences", h.Preferences.Get)
		api.PUT("/students/:studentId/preferences", h.Preferences.Update)
		api.POST("/preferences/blocked-slots/import", h.Preferences.ImportBlockedSlots)
	}
	if h.Exports != nil {
		api.POST("/schedules/:id/exports", h.Exports.Create)
		api.GET("/exports/jobs/:id", h.Exports.Status)
		api.GET("/exports/download/:token", h.Exports.Download)
	}
}

// withMeta merges extra into the metadata collected by WithResponseMeta.
func withMeta(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	meta := internalmiddleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{}, len(extra))
	}
	for k, v := range extra {
		meta[k] = v
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
