package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format is the artifact type an export produces.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, pdf and xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Artifact is a complete export, ready to be downloaded.
type Artifact struct {
	Format      Format `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Document is a laid out report waiting to be encoded.
type Document interface {
	Encode() ([]byte, error)
}

// Renderer lays out a report for one artifact format.
type Renderer interface {
	Format() Format
	ContentType() string
	DefaultLabel() string
	Layout(r *Report) (Document, error)
}

// NewRenderer returns the renderer for format with its default settings.
func NewRenderer(format Format) (Renderer, error) {
	switch format {
	case FormatCSV:
		return NewCSVRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	case FormatXLSX:
		return NewXLSXRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Finalize encodes doc and names the resulting artifact.
func Finalize(r Renderer, doc Document, header Header) (*Artifact, error) {
	data, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("could not encode %s document: %w", r.Format(), err)
	}
	label := header.Label
	if label == "" {
		label = r.DefaultLabel()
	}
	return &Artifact{
		Format:      r.Format(),
		Filename:    Filename(r.Format(), label, header.CompanyName, header.GeneratedAt),
		ContentType: r.ContentType(),
		Data:        data,
	}, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeCompanyName collapses whitespace runs to underscores and drops path separators.
func SanitizeCompanyName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return whitespaceRun.ReplaceAllString(name, "_")
}

// Filename derives the download name of an artifact.
// Delimited text is named <label>_<company>.csv; documents also carry a millisecond timestamp.
func Filename(format Format, label, company string, at time.Time) string {
	parts := []string{label}
	if c := SanitizeCompanyName(company); c != "" {
		parts = append(parts, c)
	}
	if format != FormatCSV {
		parts = append(parts, strconv.FormatInt(at.UnixMilli(), 10))
	}
	return strings.Join(parts, "_") + "." + string(format)
}
