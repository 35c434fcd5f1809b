package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups everything the router mounts. Nil members leave their routes out.
type Handlers struct {
	Timetable *TimetableHandler
	Schedule  *ScheduleHandler
	Metrics   *MetricsHandler
	// SolveLimiter guards solve submission only.
	SolveLimiter gin.HandlerFunc
}

// Register mounts the API under prefix and the probes at the root.
func Register(r *gin.Engine, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)

	if h.Timetable != nil {
		solve := api.Group("/timetables/solve")
		submit := []gin.HandlerFunc{h.Timetable.Submit}
		if h.SolveLimiter != nil {
			submit = append([]gin.HandlerFunc{h.SolveLimiter}, submit...)
		}
		solve.POST("", submit...)
		solve.GET("/:jobId", h.Timetable.Get)
		solve.DELETE("/:jobId", h.Timetable.Cancel)
		solve.GET("/:jobId/export", h.Timetable.Export)
		solve.POST("/:jobId/apply", h.Timetable.Apply)
	}

	if h.Schedule != nil {
		entries := api.Group("/schedules/:id/entries")
		entries.POST("/check", h.Schedule.Check)
		entries.POST("", h.Schedule.CreateEntry)
		entries.PUT("/:entryId", h.Schedule.UpdateEntry)
		entries.DELETE("/:entryId", h.Schedule.DeleteEntry)
	}
}
