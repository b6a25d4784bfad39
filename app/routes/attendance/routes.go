package attendance

import (
	"time"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
	"soofia-clockbook/app/routes/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAttendanceRoutes(app *fiber.App, reconciler *attendance.Reconciler) {
	h := &handler{reconciler: reconciler, now: time.Now}

	api := app.Group("/api/attendance")
	api.Use(auth.AuthMiddleware)
	api.Get("/week", h.GetWeekByDateAPI)
	api.Get("/weeks/:weekId", h.GetWeekAPI)
	api.Get("/weeks/:weekId/shift/:delta", h.ShiftWeekAPI)
	api.Get("/weeks/:weekId/report", h.GetWeekReportAPI)

	admin := auth.RoleMiddleware(models.RoleAdmin)
	api.Post("/weeks/:weekId/edits", admin, h.SaveEditsAPI)
	api.Delete("/weeks/:weekId", admin, h.DeleteWeekAPI)
	api.Delete("/past", admin, h.PurgePastWeeksAPI)
}
