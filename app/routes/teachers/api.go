package teachers

import (
	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/routes/respond"

	"github.com/gofiber/fiber/v2"
)

type handler struct {
	teachers *attendance.Teachers
}

func (h *handler) GetTeachersAPI(c *fiber.Ctx) error {
	teachers, err := h.teachers.List(c.UserContext())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"teachers": teachers,
		"count":    len(teachers),
	})
}

func (h *handler) GetTeacherAPI(c *fiber.Ctx) error {
	teacher, err := h.teachers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "teacher": teacher})
}

func (h *handler) CreateTeacherAPI(c *fiber.Ctx) error {
	type CreateTeacherRequest struct {
		Name    string  `json:"name"`
		Surname string  `json:"surname"`
		Subject *string `json:"subject"`
	}

	var req CreateTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	teacher, err := h.teachers.Create(c.UserContext(), req.Name, req.Surname, req.Subject)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "Teacher created successfully",
		"teacher": teacher,
	})
}

func (h *handler) UpdateTeacherAPI(c *fiber.Ctx) error {
	var patch attendance.TeacherPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	teacher, err := h.teachers.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Teacher updated successfully",
		"teacher": teacher,
	})
}

// DeleteTeacherAPI removes the teacher and every attendance row it owns.
func (h *handler) DeleteTeacherAPI(c *fiber.Ctx) error {
	if err := h.teachers.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Teacher deleted successfully",
	})
}
