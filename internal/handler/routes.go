package handler

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Session    *SessionHandler
	Class      *ClassHandler
	Student    *StudentHandler
	Attendance *AttendanceHandler
	Report     *ReportHandler
	System     *SystemHandler
}

// RegisterRoutes mounts the probes at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, exposeMetrics bool) {
	r.GET("/health", h.System.Health)
	r.GET("/ready", h.System.Ready)
	if exposeMetrics {
		r.GET("/metrics", h.System.Prometheus)
	}

	api := r.Group(prefix)

	api.GET("/session", h.Session.Get)
	api.PUT("/session", h.Session.Update)
	api.GET("/calendar/dates", h.Session.Dates)
	api.GET("/calendar/markable", h.Session.Markable)

	classes := api.Group("/classes")
	classes.GET("", h.Class.List)
	classes.POST("", h.Class.Create)
	classes.PUT("/:id/teacher", h.Class.UpdateTeacher)
	classes.DELETE("/:id", h.Class.Delete)
	classes.GET("/:id/roster", h.Class.Roster)
	classes.POST("/:id/roster/reorder", h.Class.Reorder)

	students := api.Group("/students")
	students.GET("", h.Student.List)
	students.POST("", h.Student.Create)
	students.DELETE("/:id", h.Student.Delete)
	students.POST("/:id/move", h.Student.Move)

	attendance := api.Group("/attendance")
	attendance.GET("/sheet", h.Attendance.Sheet)
	attendance.POST("/sessions", h.Attendance.RecordSession)
	attendance.PUT("", h.Attendance.Upsert)

	reports := api.Group("/reports")
	reports.GET("/attendance", h.Report.Attendance)
	reports.GET("/attendance/export", h.Report.Export)
}
