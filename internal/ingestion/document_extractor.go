package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	// MinExtractedTextLength is the minimum text length required for successful extraction
	MinExtractedTextLength = 50
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
)

// ErrUnsupportedFileType is returned for extensions outside the upload whitelist
var ErrUnsupportedFileType = errors.New("unsupported file type")

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTab          = regexp.MustCompile(`<w:tab/>`)
	docxBreak        = regexp.MustCompile(`<w:br/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// ExtractText reads a resume file and returns its text
func ExtractText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return ExtractTextFromBytes(filepath.Base(filePath), data)
}

// ExtractTextFromBytes extracts text from PDF, DOCX or TXT content, choosing the parser by file name
func ExtractTextFromBytes(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt":
		text = string(data)
		if IsBinaryData(text) {
			return "", fmt.Errorf("text file %s appears to be binary", name)
		}
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if len(text) < MinExtractedTextLength {
		return "", fmt.Errorf("extracted text is too short (likely failed extraction) from: %s", name)
	}

	return text, nil
}

// extractPDF extracts the plain text of every page
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := sb.String()
	if IsBinaryData(text) {
		return "", fmt.Errorf("pdf text extraction produced binary output")
	}
	return text, nil
}

// extractDOCX extracts paragraph text from a DOCX document
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

// docxXMLToText turns WordprocessingML into plain text, one paragraph per line
func docxXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = docxBreak.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	return blankLines.ReplaceAllString(strings.TrimSpace(content), "\n\n")
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content string) bool {
	if len(content) == 0 {
		return false
	}

	if strings.HasPrefix(content, "%PDF-") {
		return true
	}

	// ZIP magic number (DOCX files)
	if len(content) >= 2 && content[:2] == "PK" {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for i := 0; i < sampleSize; i++ {
		ch := content[i]
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}
