package attendance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/routes/auth"
	"soofia-clockbook/app/routes/respond"
	"soofia-clockbook/app/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type handler struct {
	reconciler *attendance.Reconciler
	now        func() time.Time
}

type EditRequest struct {
	TeacherID string          `json:"teacher_id"`
	Date      string          `json:"date"`
	Field     string          `json:"field"`
	Value     json.RawMessage `json:"value"`
}

type SaveEditsRequest struct {
	Edits []EditRequest `json:"edits"`
}

// GetWeekByDateAPI returns the week containing ?date=YYYY-MM-DD, or the current week.
func (h *handler) GetWeekByDateAPI(c *fiber.Ctx) error {
	ref := h.now()
	if raw := c.Query("date"); raw != "" {
		d, err := attendance.ParseDate(raw)
		if err != nil {
			return respond.Error(c, err)
		}
		ref = d
	}
	return h.renderWeek(c, attendance.ComputeWeek(ref))
}

func (h *handler) GetWeekAPI(c *fiber.Ctx) error {
	window, err := attendance.ParseWeekID(c.Params("weekId"))
	if err != nil {
		return respond.Error(c, err)
	}
	return h.renderWeek(c, window)
}

func (h *handler) ShiftWeekAPI(c *fiber.Ctx) error {
	window, err := attendance.ParseWeekID(c.Params("weekId"))
	if err != nil {
		return respond.Error(c, err)
	}
	delta, err := strconv.Atoi(c.Params("delta"))
	if err != nil {
		return respond.Error(c, &attendance.ValidationError{Field: "delta", Message: "must be a whole number of weeks"})
	}
	return h.renderWeek(c, attendance.ShiftWeek(window, delta))
}

func (h *handler) renderWeek(c *fiber.Ctx, window attendance.WeekWindow) error {
	teachers, grid, err := h.reconciler.Load(c.UserContext(), window)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"week":     window,
		"label":    window.String(),
		"previous": attendance.ShiftWeek(window, -1).WeekID,
		"next":     attendance.ShiftWeek(window, 1).WeekID,
		"teachers": teachers,
		"grid":     grid,
	})
}

// SaveEditsAPI applies the edits to a freshly loaded grid and persists the
// changed cells. Edits are all validated before anything is written.
func (h *handler) SaveEditsAPI(c *fiber.Ctx) error {
	window, err := attendance.ParseWeekID(c.Params("weekId"))
	if err != nil {
		return respond.Error(c, err)
	}

	var req SaveEditsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	ctx := c.UserContext()
	_, original, err := h.reconciler.Load(ctx, window)
	if err != nil {
		return respond.Error(c, err)
	}

	edited := original
	for i, e := range req.Edits {
		date, err := attendance.ParseDate(e.Date)
		if err != nil {
			return respond.Error(c, fmt.Errorf("edit %d: %w", i, err))
		}
		if !window.Contains(date) {
			return respond.Error(c, fmt.Errorf("edit %d: %w", i, &attendance.ValidationError{
				Field:   "date",
				Message: e.Date + " is outside " + window.WeekID,
			}))
		}
		edited, err = attendance.ApplyEdit(edited, e.TeacherID, attendance.FormatDate(date), attendance.Field(e.Field), editValue(e.Value))
		if err != nil {
			return respond.Error(c, fmt.Errorf("edit %d: %w", i, err))
		}
	}

	outcome, err := h.reconciler.As(auth.UserID(c)).Save(ctx, original, edited, window)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Attendance saved successfully",
		"week_id": window.WeekID,
		"applied": len(outcome.Applied),
		"outcome": outcome,
		"grid":    edited,
	})
}

func (h *handler) DeleteWeekAPI(c *fiber.Ctx) error {
	weekID := c.Params("weekId")
	n, err := h.reconciler.DeleteWeek(c.UserContext(), weekID)
	if err != nil {
		return respond.Error(c, err)
	}
	log.WithFields(log.Fields{"week_id": weekID, "deleted": n, "by": auth.UserID(c)}).Info("week attendance deleted")
	return c.JSON(fiber.Map{
		"success": true,
		"week_id": weekID,
		"deleted": n,
	})
}

// PurgePastWeeksAPI deletes every week before ?before=<weekId>, or before the current week.
func (h *handler) PurgePastWeeksAPI(c *fiber.Ctx) error {
	before := c.Query("before")
	if before == "" {
		before = attendance.ComputeWeek(h.now()).WeekID
	}
	n, err := h.reconciler.PurgeBefore(c.UserContext(), before)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"before":  before,
		"deleted": n,
	})
}

// GetWeekReportAPI renders the week as ?format=json (default), html, pdf or xlsx.
func (h *handler) GetWeekReportAPI(c *fiber.Ctx) error {
	window, err := attendance.ParseWeekID(c.Params("weekId"))
	if err != nil {
		return respond.Error(c, err)
	}
	teachers, grid, err := h.reconciler.Load(c.UserContext(), window)
	if err != nil {
		return respond.Error(c, err)
	}
	table := attendance.Project(teachers, window, grid)
	printedAt := h.now()
	filename := "teacher_attendance_" + window.WeekID

	switch strings.ToLower(c.Query("format", "json")) {
	case "json":
		return c.JSON(table)
	case "html":
		return c.Render("report", fiber.Map{
			"Title":     services.ReportTitle + " - " + table.Range,
			"School":    services.SchoolName,
			"Heading":   services.ReportTitle,
			"Table":     table,
			"PrintedAt": printedAt.Format("02 January 2006 15:04:05"),
		})
	case "pdf":
		var buf bytes.Buffer
		if err := services.RenderPDF(&buf, table, printedAt); err != nil {
			return respond.Error(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Attachment(filename + ".pdf")
		return c.Send(buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := services.RenderXLSX(&buf, table); err != nil {
			return respond.Error(c, err)
		}
		c.Attachment(filename + ".xlsx")
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return c.Send(buf.Bytes())
	}
	return respond.Error(c, &attendance.ValidationError{Field: "format", Message: "must be json, html, pdf or xlsx"})
}

// editValue accepts a JSON string, number or null.
func editValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}
