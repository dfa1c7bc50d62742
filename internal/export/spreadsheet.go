package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/ioezgamer/studio/internal/store"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Mantenimientos"

// Columns is the fixed export column order.
var Columns = []string{"Equipment", "Asset Number", "User", "Technician", "Date", "Status", "Tasks", "Notes"}

func row(record store.MaintenanceRecord) []string {
	descriptions := make([]string, 0, len(record.Tasks))
	for _, task := range record.Tasks {
		descriptions = append(descriptions, task.Description)
	}
	return []string{
		record.Equipment,
		record.AssetNumber,
		record.User,
		record.Technician,
		record.Date.Format("02/01/2006"),
		string(record.Status),
		strings.Join(descriptions, "; "),
		record.Notes,
	}
}

func Spreadsheet(records []store.MaintenanceRecord) (*Result, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	// Column widths must be set before the first row is streamed.
	if err := sw.SetColWidth(1, len(Columns), 22); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = excelize.Cell{Value: col, StyleID: bold}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, record := range records {
		values := row(record)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Result{Data: buf.Bytes(), Filename: "historial-mantenimiento.xlsx", MimeType: FormatXLSX.MimeType()}, nil
}

func CSV(records []store.MaintenanceRecord) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, record := range records {
		if err := w.Write(row(record)); err != nil {
			return nil, fmt.Errorf("write row %s: %w", record.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return &Result{Data: buf.Bytes(), Filename: "historial-mantenimiento.csv", MimeType: FormatCSV.MimeType()}, nil
}
