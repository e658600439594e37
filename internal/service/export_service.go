package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"groupcast/internal/models"
)

// rosterHeader lists the roster export columns in order
var rosterHeader = []string{"Name", "Phone", "Email", "Recipient", "Notes", "Added By", "Added At"}

// rosterColumnWidths matches rosterHeader
var rosterColumnWidths = []float64{25, 18, 30, 10, 40, 15, 20}

// ExportService renders group rosters as xlsx workbooks
type ExportService struct{}

// NewExportService creates a new export service
func NewExportService() *ExportService {
	return &ExportService{}
}

// RosterWorkbook renders a group's roster as an xlsx workbook and returns
// the file bytes
func (s *ExportService) RosterWorkbook(roster []*models.MemberWithContact) ([]byte, error) {
	f := excelize.NewFile()

	sheet := "Members"
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// Bold header row
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range rosterHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, name, name, rosterColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// One row per member, in roster order
	for i, member := range roster {
		recipient := "No"
		if member.IsRecipient {
			recipient = "Yes"
		}
		values := []interface{}{
			member.Contact.Name,
			stringOrEmpty(member.Contact.Phone),
			stringOrEmpty(member.Contact.Email),
			recipient,
			member.Notes,
			member.CreatedBy,
			member.CreatedAt.Format("2006-01-02 15:04:05"),
		}

		row := i + 2
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// Keep the header visible when scrolling
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}

// stringOrEmpty unwraps an optional string column for display
func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
