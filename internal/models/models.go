package models

// Chunk is one overlapping window of a document's extracted text. Offset is
// the byte index of Text within the source, so source[Offset:Offset+len(Text)]
// reproduces Text even when the window was trimmed.
type Chunk struct {
	Text   string
	Offset int
	Index  int
}

// SourceDocument is a retrieved chunk cited as grounding for an answer.
// Score is rounded to 4 decimal places for display; ordering upstream uses
// full precision.
type SourceDocument struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Answer pairs the generated response text with the sources it was
// grounded on.
type Answer struct {
	Answer  string           `json:"answer"`
	Sources []SourceDocument `json:"source_documents"`
}

// SkippedDocument records a document that was left out of an ingestion batch.
type SkippedDocument struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestReport summarizes a completed ingestion call.
type IngestReport struct {
	Documents int               `json:"documents"`
	Ingested  int               `json:"ingested"`
	Chunks    int               `json:"chunks"`
	Skipped   []SkippedDocument `json:"skipped,omitempty"`
}
