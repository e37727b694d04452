// Package sheet reads and writes the job tracking workbook: parsing rows,
// writing status cells back, canonical headers, templates and reports.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

// Normalized column names
const (
	ColUniqueID               = "unique_id"
	ColJobURL                 = "job_url"
	ColJobDescription         = "job_description"
	ColAdditionalInstructions = "additional_instructions"
	ColGenerateResume         = "generate_resume"
	ColGenerateCover          = "generate_cover"
	ColGenerateNewResume      = "generate_new_resume"
	ColResumeGenerated        = "resume_generated"
	ColCoverLetterGenerated   = "cover_letter_generated"
	ColRecommendations        = "recommendations"
	ColCompanyName            = "company_name"
	ColGoogleDocURL           = "google_doc_url"
)

var (
	// ErrMissingJobColumns is returned when a sheet has neither job_url nor job_description
	ErrMissingJobColumns = errors.New("sheet must contain either 'job_url' or 'job_description' column")
	// ErrInvalidRow is returned when a row index is outside the data rows
	ErrInvalidRow = errors.New("invalid row index")
)

// flag columns and the value used when the column or cell is blank
var flagDefaults = map[string]bool{
	ColGenerateResume:       true,
	ColGenerateCover:        true,
	ColGenerateNewResume:    true,
	ColResumeGenerated:      false,
	ColCoverLetterGenerated: false,
}

// NormalizeHeader trims, lowercases and replaces spaces with underscores
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// IsTruthy reports whether a cell holds yes, true, 1 or y
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// FormatBool renders a flag the way the sheet stores it
func FormatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// HeaderIndex maps normalized header names to 0-based column positions. The first occurrence wins.
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" {
			continue
		}
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}
	return idx
}

// ParseRows decodes the first worksheet of an xlsx workbook
func ParseRows(data []byte) ([]models.JobRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return ParseMatrix(rows)
}

// ParseMatrix decodes a header row followed by data rows
func ParseMatrix(rows [][]string) ([]models.JobRow, error) {
	if len(rows) == 0 {
		return nil, ErrMissingJobColumns
	}

	idx := HeaderIndex(rows[0])
	_, hasURL := idx[ColJobURL]
	_, hasDesc := idx[ColJobDescription]
	if !hasURL && !hasDesc {
		return nil, ErrMissingJobColumns
	}

	text := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	flag := func(row []string, col string) bool {
		v := strings.TrimSpace(text(row, col))
		if v == "" {
			return flagDefaults[col]
		}
		return IsTruthy(v)
	}

	jobs := make([]models.JobRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		jobURL := strings.TrimSpace(text(row, ColJobURL))
		jobDesc := strings.TrimSpace(text(row, ColJobDescription))
		if jobURL == "" && jobDesc == "" {
			continue
		}

		jobs = append(jobs, models.JobRow{
			UniqueID:               strings.TrimSpace(text(row, ColUniqueID)),
			JobURL:                 jobURL,
			JobDescription:         jobDesc,
			AdditionalInstructions: text(row, ColAdditionalInstructions),
			GenerateResume:         flag(row, ColGenerateResume),
			GenerateCover:          flag(row, ColGenerateCover),
			GenerateNewResume:      flag(row, ColGenerateNewResume),
			ResumeGenerated:        flag(row, ColResumeGenerated),
			CoverLetterGenerated:   flag(row, ColCoverLetterGenerated),
			Recommendations:        text(row, ColRecommendations),
			CompanyName:            strings.TrimSpace(text(row, ColCompanyName)),
			GoogleDocURL:           strings.TrimSpace(text(row, ColGoogleDocURL)),
			RowIndex:               i + 2,
		})
	}

	return jobs, nil
}

// CellWrite is a single cell assignment. Col and Row are 1-based.
type CellWrite struct {
	Col   int
	Row   int
	Value string
}

// Cell returns the A1 reference of the write
func (c CellWrite) Cell() string {
	name, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return ""
	}
	return name
}

// PlanRowUpdate computes the header and row cells needed to apply upd to rowIndex.
// lastRow is the sheet row number of the last data row. Status columns missing from
// the header are appended after the last header cell.
func PlanRowUpdate(header []string, lastRow, rowIndex int, upd models.RowUpdate) ([]CellWrite, error) {
	if rowIndex < 2 || rowIndex > lastRow {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, rowIndex)
	}

	idx := HeaderIndex(header)
	next := len(header)

	var writes []CellWrite
	column := func(name string) int {
		if i, ok := idx[name]; ok {
			return i + 1
		}
		next++
		idx[name] = next - 1
		writes = append(writes, CellWrite{Col: next, Row: 1, Value: name})
		return next
	}
	set := func(name, value string) {
		writes = append(writes, CellWrite{Col: column(name), Row: rowIndex, Value: value})
	}

	if upd.UniqueID != nil {
		set(ColUniqueID, *upd.UniqueID)
	}
	if upd.ResumeGenerated != nil {
		set(ColResumeGenerated, FormatBool(*upd.ResumeGenerated))
	}
	if upd.CoverLetterGenerated != nil {
		set(ColCoverLetterGenerated, FormatBool(*upd.CoverLetterGenerated))
	}
	if upd.Recommendations != nil {
		set(ColRecommendations, *upd.Recommendations)
	}
	if upd.CompanyName != nil {
		set(ColCompanyName, *upd.CompanyName)
	}
	if upd.GoogleDocURL != nil {
		set(ColGoogleDocURL, *upd.GoogleDocURL)
	}

	return writes, nil
}

// ApplyRowUpdate writes upd into the first worksheet of an xlsx workbook and returns the new workbook
func ApplyRowUpdate(data []byte, rowIndex int, upd models.RowUpdate) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, rowIndex)
	}

	writes, err := PlanRowUpdate(rows[0], len(rows), rowIndex, upd)
	if err != nil {
		return nil, err
	}

	for _, w := range writes {
		if err := f.SetCellStr(sheetName, w.Cell(), w.Value); err != nil {
			return nil, fmt.Errorf("failed to set cell %s: %w", w.Cell(), err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
