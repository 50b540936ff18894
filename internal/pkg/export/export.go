package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Columns is the stable export header. Do not reorder: downstream diffs depend on it.
var Columns = []string{
	"employee_id",
	"employee_name",
	"date",
	"check_in",
	"check_out",
	"hours_worked",
	"late",
	"early_exit",
	"overtime",
}

// Row is one session with its derived facts, already formatted for output.
type Row struct {
	EmployeeID   string
	EmployeeName string
	Date         string
	CheckIn      string
	CheckOut     string
	HoursWorked  float64
	Late         bool
	EarlyExit    bool
	Overtime     bool
}

func (r Row) values() []string {
	return []string{
		r.EmployeeID,
		r.EmployeeName,
		r.Date,
		r.CheckIn,
		r.CheckOut,
		strconv.FormatFloat(r.HoursWorked, 'f', 2, 64),
		strconv.FormatBool(r.Late),
		strconv.FormatBool(r.EarlyExit),
		strconv.FormatBool(r.Overtime),
	}
}

// CSV writes a header line followed by one line per row.
func CSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.values()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var pdfWidths = []float64{30, 50, 24, 24, 24, 26, 18, 24, 24}

var pdfHeaders = []string{"Employee ID", "Name", "Date", "Check In", "Check Out", "Hours", "Late", "Early Exit", "Overtime"}

// PDF renders rows as an A4 landscape table.
func PDF(title string, rows []Row, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range pdfHeaders {
		pdf.CellFormat(pdfWidths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, r := range rows {
		values := r.values()
		for i, v := range values {
			align := "L"
			if i >= 2 {
				align = "C"
			}
			pdf.CellFormat(pdfWidths[i], 7, truncate(v, pdfWidths[i]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 8, fmt.Sprintf("%d sessions. Generated %s", len(rows), generatedAt.Format("02 January 2006 15:04:05")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps a value inside its column at the table font size.
func truncate(s string, width float64) string {
	limit := int(width / 1.9)
	if len(s) <= limit {
		return s
	}
	return s[:limit-1] + "~"
}

const sheetName = "Attendance"

// XLSX writes rows to a single styled worksheet.
func XLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for n, r := range rows {
		row := n + 2
		cells := []interface{}{
			r.EmployeeID,
			r.EmployeeName,
			r.Date,
			r.CheckIn,
			r.CheckOut,
			r.HoursWorked,
			r.Late,
			r.EarlyExit,
			r.Overtime,
		}
		for i, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 18)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "E", 20)
	f.SetColWidth(sheetName, "F", "I", 13)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
