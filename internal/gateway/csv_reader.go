package gateway

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"recon-report/internal/apperror"
	"recon-report/internal/domain"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// DefaultMaxDocumentSize bounds what is read into memory per document.
	DefaultMaxDocumentSize = 20 << 20
)

// FileDocumentRepository reads statement and ledger files from disk and normalizes them.
// Delimited text and spreadsheets become tabular text; PDFs and images are passed through
// as binary documents.
type FileDocumentRepository struct {
	MaxSize int64
	log     *logrus.Entry
}

// NewFileDocumentRepository creates a new repository instance.
func NewFileDocumentRepository(log *logrus.Entry) *FileDocumentRepository {
	return &FileDocumentRepository{MaxSize: DefaultMaxDocumentSize, log: log}
}

// GetDocument reads and normalizes the file at path.
func (r *FileDocumentRepository) GetDocument(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Document{}, apperror.Wrap(apperror.ErrNotFound, "document not found: "+path, err)
		}
		return domain.Document{}, fmt.Errorf("failed to open document %s: %w", path, err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, r.MaxSize+1))
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	if int64(len(content)) > r.MaxSize {
		return domain.Document{}, apperror.New(apperror.ErrInvalidInput, fmt.Sprintf("document %s exceeds %d bytes", path, r.MaxSize))
	}

	return r.Normalize(filepath.Base(path), content)
}

// Normalize classifies content by sniffing it and converts tabular formats to CSV text.
func (r *FileDocumentRepository) Normalize(filename string, content []byte) (domain.Document, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return domain.Document{}, apperror.New(apperror.ErrInvalidInput, "document "+filename+" is empty")
	}

	mtype := mimetype.Detect(content)
	doc := domain.Document{Filename: filename, MimeType: mtype.String()}

	var err error
	switch {
	case mtype.Is(mimeXLSX) || (mtype.Is("application/zip") && strings.EqualFold(filepath.Ext(filename), ".xlsx")):
		doc.NormalizedType = domain.TabularText
		doc.Content, err = spreadsheetToCSV(content)
		doc.MimeType = "text/csv"
	case isText(mtype):
		doc.NormalizedType = domain.TabularText
		doc.Content, err = normalizeCSV(content)
		doc.MimeType = "text/csv"
	case mtype.Is("application/pdf") || strings.HasPrefix(mtype.String(), "image/"):
		doc.NormalizedType = domain.BinaryDocument
		doc.Content = content
	default:
		return domain.Document{}, apperror.New(apperror.ErrUnsupported,
			fmt.Sprintf("document %s has unsupported type %s", filename, mtype.String()))
	}
	if err != nil {
		return domain.Document{}, apperror.Wrap(apperror.ErrInvalidInput, "could not read document "+filename, err)
	}

	if r.log != nil {
		r.log.WithFields(logrus.Fields{
			"filename": filename,
			"type":     doc.NormalizedType,
			"mime":     mtype.String(),
			"bytes":    len(doc.Content),
		}).Debug("document normalized")
	}
	return doc, nil
}

func isText(m *mimetype.MIME) bool {
	for p := m; p != nil; p = p.Parent() {
		if p.Is("text/plain") {
			return true
		}
	}
	return false
}

// normalizeCSV re-emits delimited text with trimmed fields and without blank rows.
func normalizeCSV(content []byte) ([]byte, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}
		rows = append(rows, record)
	}
	return writeRows(rows)
}

// spreadsheetToCSV converts the first worksheet of a workbook.
func spreadsheetToCSV(content []byte) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("could not open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %s: %w", sheets[0], err)
	}
	return writeRows(rows)
}

func writeRows(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		blank := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			blank = blank && row[i] == ""
		}
		if blank {
			continue
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("no rows")
	}
	return buf.Bytes(), nil
}
