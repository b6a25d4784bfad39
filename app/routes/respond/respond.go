// Package respond maps engine errors onto JSON error responses.
package respond

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"soofia-clockbook/app/attendance"
)

// Status picks the HTTP status for an engine error.
func Status(err error) int {
	var (
		ve *attendance.ValidationError
		se *attendance.SequencingError
		pe *attendance.PersistenceError
		fe *fiber.Error
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.As(err, &se):
		return fiber.StatusInternalServerError
	case attendance.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.As(err, &pe):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// Error writes err as {"error": ...} plus whatever detail its type carries.
func Error(c *fiber.Ctx, err error) error {
	code := Status(err)
	body := fiber.Map{"error": err.Error()}

	var (
		ve *attendance.ValidationError
		se *attendance.SequencingError
		pe *attendance.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		body["field"] = ve.Field
	case errors.As(err, &se):
		body["phase"] = se.Phase
		body["partial"] = se.Partial()
		body["attendance_deleted"] = se.AttendanceDeleted
	case errors.As(err, &pe):
		if len(pe.Pending) > 0 {
			body["pending"] = pe.Pending
		}
	}

	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return c.Status(code).JSON(body)
}
