package services

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
)

const (
	SchoolName  = "Soofia High School"
	ReportTitle = "Weekly Teacher Attendance Report"
)

// RenderPDF writes the pivot table as an A4 landscape PDF.
func RenderPDF(w io.Writer, table attendance.PivotTable, printedAt time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 7, ReportTitle, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, "Week: "+table.Range, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	widths := columnWidths(len(table.Columns))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(245, 245, 245)
	for i, col := range table.Columns {
		label := col
		if i >= 2 && i-2 < len(table.Dates) {
			label = col + " " + table.Dates[i-2]
		}
		pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	if len(table.Rows) == 0 {
		pdf.CellFormat(sum(widths), 8, "No teachers on the roster.", "1", 1, "C", false, 0, "")
	}
	for _, row := range table.Rows {
		pdf.SetFillColor(255, 255, 255)
		pdf.CellFormat(widths[0], 8, row.Teacher, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, row.Subject, "1", 0, "L", false, 0, "")
		for i, cell := range row.Cells {
			r, g, b := statusFill(cell.Status)
			pdf.SetFillColor(r, g, b)
			pdf.CellFormat(widths[2+i], 8, cell.Text, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Printed on: "+printedAt.Format("02 January 2006 15:04:05"), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}

// RenderXLSX writes the pivot table as a single-sheet workbook.
func RenderXLSX(w io.Writer, table attendance.PivotTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Attendance"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F5F5F5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	presentStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D4EDDA"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	absentStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8D7DA"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(table.Columns))
	f.SetCellValue(sheetName, "A1", SchoolName+" - "+ReportTitle)
	f.MergeCell(sheetName, "A1", lastCol+"1")
	f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)
	f.SetCellValue(sheetName, "A2", "Week: "+table.Range)

	for i, col := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		label := col
		if i >= 2 && i-2 < len(table.Dates) {
			label = col + " " + table.Dates[i-2]
		}
		f.SetCellValue(sheetName, cell, label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for r, row := range table.Rows {
		line := 5 + r
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", line), row.Teacher)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", line), row.Subject)
		for i, c := range row.Cells {
			cell, _ := excelize.CoordinatesToCellName(3+i, line)
			text := c.Text
			for _, slot := range c.Slots {
				text += "\n" + slot.Text
			}
			f.SetCellValue(sheetName, cell, text)
			switch c.Status {
			case models.Present:
				f.SetCellStyle(sheetName, cell, cell, presentStyle)
			case models.Absent:
				f.SetCellStyle(sheetName, cell, cell, absentStyle)
			}
		}
	}

	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", "B", 18)
	if len(table.Columns) > 2 {
		first, _ := excelize.ColumnNumberToName(3)
		f.SetColWidth(sheetName, first, lastCol, 30)
	}

	return f.Write(w)
}

func columnWidths(n int) []float64 {
	widths := make([]float64, n)
	if n == 0 {
		return widths
	}
	// 277mm printable on landscape A4
	widths[0] = 45
	if n > 1 {
		widths[1] = 30
	}
	if n > 2 {
		day := (277 - 75) / float64(n-2)
		for i := 2; i < n; i++ {
			widths[i] = day
		}
	}
	return widths
}

func sum(v []float64) float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	return total
}

func statusFill(s models.AttendanceStatus) (int, int, int) {
	switch s {
	case models.Present:
		return 212, 237, 218
	case models.Absent:
		return 248, 215, 218
	}
	return 255, 255, 255
}
