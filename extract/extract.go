// Package extract transcribes page images to markdown through a vision
// model and turns the raw response into fragment text.
package extract

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the service answers without any choice.
var ErrEmptyResponse = errors.New("extract: empty response from service")

// Request is one transcription call for a single page.
type Request struct {
	Image       []byte
	MIMEType    string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Extractor is the external text-extraction service.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request) (string, error)

// Extract calls f(ctx, req).
func (f ExtractorFunc) Extract(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
