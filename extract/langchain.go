package extract

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LLMExtractor runs transcription through any langchaingo model that
// accepts image parts.
type LLMExtractor struct {
	model llms.Model
}

// NewLLMExtractor wraps model.
func NewLLMExtractor(model llms.Model) *LLMExtractor {
	return &LLMExtractor{model: model}
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, req Request) (string, error) {
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	messages := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.BinaryPart(mimeType, req.Image),
			llms.TextPart(req.Prompt),
		},
	}}

	options := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := e.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", fmt.Errorf("extract: generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
