package sheet

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resume-drive-agent/internal/models"
)

// ReportEntry is one job application in the export report
type ReportEntry struct {
	Job          models.JobApplication
	GoogleDocURL string
}

// ExportReport writes an Excel report of job applications
func ExportReport(entries []ReportEntry, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	summarySheet := "Summary"
	jobsSheet := "Job Applications"

	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(jobsSheet)

	if err := createSummarySheet(f, summarySheet, entries); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := createJobsSheet(f, jobsSheet, entries); err != nil {
		return fmt.Errorf("failed to create job applications sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		// If direct save fails, try buffer write fallback
		var buf bytes.Buffer
		if writeErr := f.Write(&buf); writeErr != nil {
			return fmt.Errorf("failed to save Excel file: direct save failed (%v), buffer write also failed: %w", err, writeErr)
		}
		if fileErr := os.WriteFile(outputPath, buf.Bytes(), 0644); fileErr != nil {
			return fmt.Errorf("failed to save Excel file: direct save failed (%v), file write failed: %w", err, fileErr)
		}
	}

	return nil
}

// createSummarySheet writes totals per status
func createSummarySheet(f *excelize.File, sheetName string, entries []ReportEntry) error {
	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", "B", 30)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	row := 1
	label := func(text string, value interface{}) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), text)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value)
		row++
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Job Applications Report")
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	row += 2

	label("Generated:", time.Now().Format("2006-01-02 15:04:05"))
	label("Total Applications:", len(entries))
	row++

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "By Status:")
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	row++

	counts := make(map[models.JobStatus]int)
	resumes, letters := 0, 0
	for _, e := range entries {
		counts[e.Job.Status]++
		if e.Job.ResumeGenerated {
			resumes++
		}
		if e.Job.CoverLetterGenerated {
			letters++
		}
	}
	for _, s := range []models.JobStatus{models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed, models.StatusArchived} {
		label(strings.ToUpper(string(s[:1]))+string(s[1:])+":", counts[s])
	}
	row++

	label("Resumes Generated:", resumes)
	label("Cover Letters Generated:", letters)

	return nil
}

// createJobsSheet lists applications with rows colored by status
func createJobsSheet(f *excelize.File, sheetName string, entries []ReportEntry) error {
	widths := map[string]float64{"A": 8, "B": 26, "C": 24, "D": 45, "E": 12, "F": 12, "G": 12, "H": 20, "I": 18}
	for col, w := range widths {
		f.SetColWidth(sheetName, col, col, w)
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}

	statusColors := map[models.JobStatus]string{
		models.StatusCompleted:  "C6EFCE",
		models.StatusProcessing: "FFEB9C",
		models.StatusPending:    "FFFFFF",
		models.StatusFailed:     "FFC7CE",
		models.StatusArchived:   "D9D9D9",
	}
	rowStyles := make(map[models.JobStatus]int, len(statusColors))
	linkStyles := make(map[models.JobStatus]int, len(statusColors))
	for status, color := range statusColors {
		rowStyles[status], err = f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: border,
		})
		if err != nil {
			return err
		}
		linkStyles[status], err = f.NewStyle(&excelize.Style{
			Font:   &excelize.Font{Color: "0563C1", Underline: "single"},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: border,
		})
		if err != nil {
			return err
		}
	}

	headers := []string{"ID", "Unique ID", "Company", "Job", "Status", "Resume", "Cover Letter", "Updated", "Document"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, e := range entries {
		row := i + 2
		job := e.Job
		jobText := job.JobURL
		if jobText == "" {
			jobText = truncate(job.JobDescription, 80)
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), job.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), job.UniqueID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), job.CompanyName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), jobText)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), string(job.Status))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), FormatBool(job.ResumeGenerated))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), FormatBool(job.CoverLetterGenerated))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), job.UpdatedAt.Format("2006-01-02 15:04"))

		style, ok := rowStyles[job.Status]
		if !ok {
			style = rowStyles[models.StatusPending]
		}
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), style)

		docCell := fmt.Sprintf("I%d", row)
		if e.GoogleDocURL != "" {
			f.SetCellValue(sheetName, docCell, "Open Doc")
			f.SetCellHyperLink(sheetName, docCell, e.GoogleDocURL, "External")
			link, ok := linkStyles[job.Status]
			if !ok {
				link = linkStyles[models.StatusPending]
			}
			f.SetCellStyle(sheetName, docCell, docCell, link)
		} else {
			f.SetCellValue(sheetName, docCell, "N/A")
		}
	}

	// Freeze header row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
