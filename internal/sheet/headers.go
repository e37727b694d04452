package sheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// CanonicalHeaders is the column order written by SetupHeaders and Template
var CanonicalHeaders = []string{
	"Unique ID",
	"Job URL",
	"Job Description",
	"Additional Instructions",
	"Generate Resume",
	"Generate Cover",
	"Generate New Resume",
	"Resume Generated",
	"Cover Letter Generated",
	"Recommendations",
	"Company Name",
	"Google Doc URL",
}

// SetupHeaders overwrites row 1 of the first worksheet with the canonical headers.
// Data rows are kept as they are.
func SetupHeaders(data []byte) ([]byte, error) {
	var (
		f   *excelize.File
		err error
	)
	if len(data) == 0 {
		f = excelize.NewFile()
	} else {
		f, err = excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
	}
	defer f.Close()

	if err := writeHeaderRow(f, f.GetSheetName(0)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// HeaderRow returns the canonical headers as a row of cell values
func HeaderRow() []interface{} {
	row := make([]interface{}, len(CanonicalHeaders))
	for i, h := range CanonicalHeaders {
		row[i] = h
	}
	return row
}

func writeHeaderRow(f *excelize.File, sheetName string) error {
	cells := HeaderRow()
	if err := f.SetSheetRow(sheetName, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}
