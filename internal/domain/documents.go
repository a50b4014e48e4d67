package domain

// NormalizedType is the shape ingestion reduces every uploaded file to.
type NormalizedType string

const (
	TabularText    NormalizedType = "tabular-text"
	BinaryDocument NormalizedType = "binary-document"
)

// Document is an ingested file, ready to be handed to the matcher.
type Document struct {
	Filename       string         `json:"filename"`
	NormalizedType NormalizedType `json:"normalizedType"`
	Content        []byte         `json:"content"`
	MimeType       string         `json:"mimeType,omitempty"`
}

// MatchMode trades matcher latency for accuracy.
type MatchMode string

const (
	ModeFast    MatchMode = "fast"
	ModePrecise MatchMode = "precise"
)

// IsValid reports whether the mode is one the matcher understands.
func (m MatchMode) IsValid() bool {
	return m == ModeFast || m == ModePrecise
}

// MatchRequest is everything the external matcher needs for one reconciliation.
type MatchRequest struct {
	Bank   Document
	Ledger Document
	Mode   MatchMode
}
