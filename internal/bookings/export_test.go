package bookings

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportSample() []Booking {
	return []Booking{{
		Number:        "BK-250307-001",
		CustomerName:  "Jane Doe",
		CustomerPhone: "555-0101",
		Car:           Car{Make: "Honda", Model: "Civic", Year: 2020, LicensePlate: "XYZ789"},
		Services:      []string{"Basic Car Wash", "Oil Change"},
		TotalAmount:   85,
		Status:        StatusPaid,
		ScheduledAt:   time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2025, time.March, 7, 10, 0, 0, 0, time.UTC),
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportSample(), time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, []string{
		"BK-250307-001", "Jane Doe", "555-0101", "2020 Honda Civic", "XYZ789",
		"Basic Car Wash, Oil Change", "85.00", "paid", "2025-03-08 09:00", "2025-03-07 10:00",
	}, records[1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, exportSample(), time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	header, err := f.GetCellValue(exportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Booking Number", header)
	number, err := f.GetCellValue(exportSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "BK-250307-001", number)
	total, err := f.GetCellValue(exportSheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "85", total)
}

func TestExportEscapesFormulaCells(t *testing.T) {
	list := exportSample()
	list[0].CustomerName = `=HYPERLINK("http://evil.example","click")`
	list[0].Car.LicensePlate = "@SUM(A1)"
	list[0].Services = []string{"+cmd", "Oil Change"}
	list[0].CustomerPhone = "-2+3"

	var csvBuf bytes.Buffer
	require.NoError(t, WriteCSV(&csvBuf, list, time.UTC))
	records, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `'=HYPERLINK("http://evil.example","click")`, records[1][1])
	assert.Equal(t, "'-2+3", records[1][2])
	assert.Equal(t, "'@SUM(A1)", records[1][4])
	assert.Equal(t, "'+cmd, Oil Change", records[1][5])
	assert.Equal(t, "BK-250307-001", records[1][0])
	assert.Equal(t, "85.00", records[1][6])

	var xlsxBuf bytes.Buffer
	require.NoError(t, WriteXLSX(&xlsxBuf, list, time.UTC))
	f, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(exportSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, `'=HYPERLINK("http://evil.example","click")`, name)
	formula, err := f.GetCellFormula(exportSheet, "B2")
	require.NoError(t, err)
	assert.Empty(t, formula)
}
