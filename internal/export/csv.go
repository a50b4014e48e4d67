package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer writes one header row per section followed by one row per record.
// The first column carries the section code so sections stay distinguishable once merged.
type CSVRenderer struct {
	Comma rune
}

// NewCSVRenderer returns a comma separated renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{Comma: ','}
}

// Format implements Renderer.
func (r *CSVRenderer) Format() Format { return FormatCSV }

// ContentType implements Renderer.
func (r *CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }

// DefaultLabel is the file name label used when the request carries none.
func (r *CSVRenderer) DefaultLabel() string { return "ReconReport" }

type csvDocument struct {
	data []byte
}

func (d *csvDocument) Encode() ([]byte, error) { return d.data, nil }

// Layout writes every table of report. Fields containing the separator, a quote or a line
// break are quoted with inner quotes doubled.
func (r *CSVRenderer) Layout(report *Report) (Document, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = r.Comma

	for _, t := range report.Tables {
		head := make([]string, 0, len(t.Columns)+1)
		head = append(head, "Type")
		for _, c := range t.Columns {
			head = append(head, c.Title)
		}
		if err := w.Write(head); err != nil {
			return nil, fmt.Errorf("could not write %s header: %w", t.Section, err)
		}

		for i, row := range t.Rows {
			record := make([]string, 0, len(row)+1)
			record = append(record, t.Code)
			for _, cell := range row {
				record = append(record, cell.Raw)
			}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("could not write %s row %d: %w", t.Section, i, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("could not flush csv: %w", err)
	}
	return &csvDocument{data: buf.Bytes()}, nil
}
