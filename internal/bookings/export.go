package bookings

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Export formats.
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

const exportSheet = "Bookings"

var exportHeaders = []string{
	"Booking Number", "Customer", "Phone", "Vehicle", "License Plate",
	"Services", "Total", "Status", "Scheduled", "Created",
}

// escapeCell keeps spreadsheet apps from evaluating user text as a formula.
func escapeCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func exportRow(b Booking, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	return []string{
		escapeCell(b.Number),
		escapeCell(b.CustomerName),
		escapeCell(b.CustomerPhone),
		escapeCell(b.Car.Description()),
		escapeCell(b.Car.LicensePlate),
		escapeCell(strings.Join(b.Services, ", ")),
		strconv.FormatFloat(b.TotalAmount, 'f', 2, 64),
		b.Status.String(),
		b.ScheduledAt.In(loc).Format("2006-01-02 15:04"),
		b.CreatedAt.In(loc).Format("2006-01-02 15:04"),
	}
}

// WriteCSV writes the bookings as CSV.
func WriteCSV(w io.Writer, list []Booking, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeaders); err != nil {
		return err
	}
	for _, b := range list {
		if err := writer.Write(exportRow(b, loc)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the bookings as a single-sheet workbook.
func WriteXLSX(w io.Writer, list []Booking, loc *time.Location) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx, b := range list {
		row := exportRow(b, loc)
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			var v any = value
			if colIdx == 6 {
				v = b.TotalAmount
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(exportHeaders))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "A", last, 18); err != nil {
		return err
	}
	return f.Write(w)
}
