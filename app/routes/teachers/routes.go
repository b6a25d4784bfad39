package teachers

import (
	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
	"soofia-clockbook/app/routes/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupTeachersRoutes(app *fiber.App, manager *attendance.Teachers) {
	h := &handler{teachers: manager}

	// API routes
	api := app.Group("/api/teachers")
	api.Use(auth.AuthMiddleware)
	api.Get("/", h.GetTeachersAPI)
	api.Get("/:id", h.GetTeacherAPI)

	admin := auth.RoleMiddleware(models.RoleAdmin)
	api.Post("/", admin, h.CreateTeacherAPI)
	api.Put("/:id", admin, h.UpdateTeacherAPI)
	api.Delete("/:id", admin, h.DeleteTeacherAPI)
}
