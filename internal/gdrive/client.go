// Package gdrive wraps the Google Drive, Sheets and Docs APIs used to read the
// job sheet, write status cells back and publish generated documents.
package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/fmuoria/resume-drive-agent/internal/models"
	"github.com/fmuoria/resume-drive-agent/internal/sheet"
)

const (
	// MimeSpreadsheet is a native Google Sheets file
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	// MimeXLSX is an uploaded Excel workbook
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	docURLFormat = "https://docs.google.com/document/d/%s/edit"
	fileFields   = "id, name, modifiedTime, mimeType"
)

// Client talks to Drive, Sheets and Docs
type Client struct {
	drive  *drive.Service
	sheets *sheets.Service
	docs   *docs.Service
	logger *zap.Logger
}

// New creates a client over an authorized HTTP client
func New(ctx context.Context, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	return NewWithOptions(ctx, logger, option.WithHTTPClient(httpClient))
}

// NewWithOptions creates a client with explicit API options
func NewWithOptions(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driveSrv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	sheetsSrv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	docsSrv, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	return &Client{drive: driveSrv, sheets: sheetsSrv, docs: docsSrv, logger: logger}, nil
}

// DocURL returns the edit URL of a Google Doc
func DocURL(docID string) string {
	return fmt.Sprintf(docURLFormat, docID)
}

// FileMetadata returns id, name, modified time and mime type of a Drive file
func (c *Client) FileMetadata(ctx context.Context, fileID string) (models.FileMetadata, error) {
	f, err := c.drive.Files.Get(fileID).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return models.FileMetadata{}, fmt.Errorf("failed to get file metadata: %w", err)
	}
	return models.FileMetadata{
		ID:           f.Id,
		Name:         f.Name,
		ModifiedTime: f.ModifiedTime,
		MimeType:     f.MimeType,
	}, nil
}

// ReadRows downloads the sheet as xlsx and parses its job rows
func (c *Client) ReadRows(ctx context.Context, fileID string) ([]models.JobRow, error) {
	meta, err := c.FileMetadata(ctx, fileID)
	if err != nil {
		return nil, err
	}

	data, err := c.download(ctx, meta)
	if err != nil {
		return nil, err
	}

	rows, err := sheet.ParseRows(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", meta.Name, err)
	}
	c.logger.Debug("read sheet rows", zap.String("file", meta.Name), zap.Int("rows", len(rows)))
	return rows, nil
}

// UpdateRow writes status cells into one row of the sheet
func (c *Client) UpdateRow(ctx context.Context, fileID string, rowIndex int, upd models.RowUpdate) error {
	if upd.Empty() {
		return nil
	}

	meta, err := c.FileMetadata(ctx, fileID)
	if err != nil {
		return err
	}

	if meta.MimeType == MimeSpreadsheet {
		return c.updateNativeRow(ctx, fileID, rowIndex, upd)
	}

	data, err := c.download(ctx, meta)
	if err != nil {
		return err
	}
	out, err := sheet.ApplyRowUpdate(data, rowIndex, upd)
	if err != nil {
		return fmt.Errorf("failed to update row %d: %w", rowIndex, err)
	}
	return c.upload(ctx, fileID, out)
}

// SetupHeaders writes the canonical header row into the sheet
func (c *Client) SetupHeaders(ctx context.Context, fileID string) error {
	meta, err := c.FileMetadata(ctx, fileID)
	if err != nil {
		return err
	}

	if meta.MimeType == MimeSpreadsheet {
		title, err := c.firstSheetTitle(ctx, fileID)
		if err != nil {
			return err
		}
		vr := &sheets.ValueRange{Values: [][]interface{}{sheet.HeaderRow()}}
		_, err = c.sheets.Spreadsheets.Values.Update(fileID, quoteSheet(title)+"!A1", vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
		return nil
	}

	data, err := c.download(ctx, meta)
	if err != nil {
		return err
	}
	out, err := sheet.SetupHeaders(data)
	if err != nil {
		return fmt.Errorf("failed to set up headers: %w", err)
	}
	return c.upload(ctx, fileID, out)
}

// CreateDocument creates a Google Doc holding the resume and cover letter, placed in folderID when set
func (c *Client) CreateDocument(ctx context.Context, folderID, title, resume, coverLetter string) (models.DocumentInfo, error) {
	doc, err := c.docs.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return models.DocumentInfo{}, fmt.Errorf("failed to create document: %w", err)
	}

	if err := c.writeContent(ctx, doc.DocumentId, resume, coverLetter); err != nil {
		return models.DocumentInfo{}, err
	}

	if folderID != "" {
		if err := c.moveToFolder(ctx, doc.DocumentId, folderID); err != nil {
			return models.DocumentInfo{}, err
		}
	}

	c.logger.Info("created document", zap.String("title", title), zap.String("doc_id", doc.DocumentId))
	return models.DocumentInfo{DocID: doc.DocumentId, DocURL: DocURL(doc.DocumentId)}, nil
}

// moveToFolder makes folderID the only parent of a file. Drive files have a single parent,
// so the current ones are removed in the same call.
func (c *Client) moveToFolder(ctx context.Context, fileID, folderID string) error {
	f, err := c.drive.Files.Get(fileID).
		Fields("parents").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to read document parents: %w", err)
	}

	var previous []string
	for _, p := range f.Parents {
		if p == folderID {
			return nil
		}
		previous = append(previous, p)
	}

	call := c.drive.Files.Update(fileID, &drive.File{}).
		AddParents(folderID).
		Fields("id, parents").
		SupportsAllDrives(true)
	if len(previous) > 0 {
		call = call.RemoveParents(strings.Join(previous, ","))
	}
	if _, err := call.Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to move document to folder: %w", err)
	}
	return nil
}

// UpdateDocument replaces the body of an existing Google Doc
func (c *Client) UpdateDocument(ctx context.Context, docID, resume, coverLetter string) (models.DocumentInfo, error) {
	doc, err := c.docs.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return models.DocumentInfo{}, fmt.Errorf("failed to get document: %w", err)
	}

	if end := bodyEndIndex(doc); end > 2 {
		req := &docs.BatchUpdateDocumentRequest{Requests: []*docs.Request{{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: end - 1},
			},
		}}}
		if _, err := c.docs.Documents.BatchUpdate(docID, req).Context(ctx).Do(); err != nil {
			return models.DocumentInfo{}, fmt.Errorf("failed to clear document: %w", err)
		}
	}

	if err := c.writeContent(ctx, docID, resume, coverLetter); err != nil {
		return models.DocumentInfo{}, err
	}
	return models.DocumentInfo{DocID: docID, DocURL: DocURL(docID)}, nil
}

func (c *Client) writeContent(ctx context.Context, docID, resume, coverLetter string) error {
	req := &docs.BatchUpdateDocumentRequest{Requests: contentRequests(resume, coverLetter)}
	if _, err := c.docs.Documents.BatchUpdate(docID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write document content: %w", err)
	}
	return nil
}

// contentRequests inserts every section at index 1, so they are issued in reverse reading order
func contentRequests(resume, coverLetter string) []*docs.Request {
	at := func() *docs.Location { return &docs.Location{Index: 1} }

	var reqs []*docs.Request
	if coverLetter != "" {
		reqs = append(reqs,
			&docs.Request{InsertText: &docs.InsertTextRequest{Location: at(), Text: "COVER LETTER\n\n" + coverLetter + "\n"}},
			&docs.Request{InsertPageBreak: &docs.InsertPageBreakRequest{Location: at()}},
		)
	}
	reqs = append(reqs, &docs.Request{InsertText: &docs.InsertTextRequest{Location: at(), Text: "RESUME\n\n" + resume + "\n"}})
	return reqs
}

func bodyEndIndex(doc *docs.Document) int64 {
	if doc == nil || doc.Body == nil || len(doc.Body.Content) == 0 {
		return 0
	}
	return doc.Body.Content[len(doc.Body.Content)-1].EndIndex
}

func (c *Client) updateNativeRow(ctx context.Context, fileID string, rowIndex int, upd models.RowUpdate) error {
	title, err := c.firstSheetTitle(ctx, fileID)
	if err != nil {
		return err
	}

	resp, err := c.sheets.Spreadsheets.Values.Get(fileID, quoteSheet(title)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet values: %w", err)
	}

	var header []string
	if len(resp.Values) > 0 {
		for _, v := range resp.Values[0] {
			header = append(header, fmt.Sprint(v))
		}
	}

	writes, err := sheet.PlanRowUpdate(header, len(resp.Values), rowIndex, upd)
	if err != nil {
		return fmt.Errorf("failed to update row %d: %w", rowIndex, err)
	}

	data := make([]*sheets.ValueRange, 0, len(writes))
	for _, w := range writes {
		data = append(data, &sheets.ValueRange{
			Range:  quoteSheet(title) + "!" + w.Cell(),
			Values: [][]interface{}{{w.Value}},
		})
	}

	_, err = c.sheets.Spreadsheets.Values.BatchUpdate(fileID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write sheet values: %w", err)
	}
	return nil
}

func (c *Client) firstSheetTitle(ctx context.Context, fileID string) (string, error) {
	ss, err := c.sheets.Spreadsheets.Get(fileID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no sheets", fileID)
	}
	return ss.Sheets[0].Properties.Title, nil
}

func (c *Client) download(ctx context.Context, meta models.FileMetadata) ([]byte, error) {
	var (
		resp *http.Response
		err  error
	)
	if meta.MimeType == MimeSpreadsheet {
		resp, err = c.drive.Files.Export(meta.ID, MimeXLSX).Context(ctx).Download()
	} else {
		resp, err = c.drive.Files.Get(meta.ID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", meta.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", meta.Name, err)
	}
	return data, nil
}

func (c *Client) upload(ctx context.Context, fileID string, data []byte) error {
	_, err := c.drive.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(MimeXLSX)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload workbook: %w", err)
	}
	return nil
}

func quoteSheet(title string) string {
	return "'" + title + "'"
}
