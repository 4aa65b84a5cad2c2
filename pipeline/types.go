// Package pipeline drives page extraction, reflow and book assembly for
// one conversion job.
//
// An Orchestrator resolves pages strictly one after another: each page is
// sent to the extraction service with the retry policy, the cleaned text is
// folded into the reflow state, progress is reported, and a courtesy pause
// follows before the next page. Convert then renders the Sections as an
// ePub and verifies the archive before it is handed to a Sink.
package pipeline

import "time"

// Page is one captured page image.
type Page struct {
	// Index is the 1-based capture position, unique and ascending.
	Index int `json:"index" validate:"gte=1"`

	// Image holds the encoded image bytes.
	Image []byte `json:"image" validate:"required"`

	// MIMEType is the image type, e.g. "image/png".
	MIMEType string `json:"mime_type"`
}

// Book is the metadata of the publication being built.
type Book struct {
	Title      string
	Author     string
	Language   string
	Identifier string
}

// Outcome values reported for each page.
const (
	OutcomeExtracted = "extracted"
	OutcomeFailed    = "failed"
)

// Progress is reported once per page, after its extraction resolved.
type Progress struct {
	Page     int    `json:"page"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Outcome  string `json:"outcome"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// ProgressFunc receives Progress notifications. It must not block.
type ProgressFunc func(Progress)

// Artifact is a finished, verified ePub.
type Artifact struct {
	Filename string
	Data     []byte
	Sections int
	Elapsed  time.Duration
}
