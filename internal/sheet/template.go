package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var sampleRows = [][]interface{}{
	{"", "https://www.linkedin.com/jobs/view/12345", "", "Focus on Python and Django experience",
		"yes", "yes", "yes", "no", "no", "", "", ""},
	{"", "", "We are looking for a Senior Python Developer with 5+ years of experience in Django, REST APIs, and cloud technologies. Must have strong leadership skills and experience managing teams.",
		"Emphasize leadership and team management skills", "yes", "yes", "no", "no", "no", "", "", ""},
	{"", "https://example.com/careers/software-engineer", "", "Highlight machine learning and AI projects",
		"yes", "no", "yes", "no", "no", "", "", ""},
}

// Template returns a workbook with the canonical headers and three sample jobs
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if err := writeHeaderRow(f, sheetName); err != nil {
		return nil, err
	}

	for i, row := range sampleRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		r := row
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return nil, fmt.Errorf("failed to write sample row: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(CanonicalHeaders))
	f.SetCellStyle(sheetName, "A1", last+"1", headerStyle)
	f.SetColWidth(sheetName, "A", last, 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
