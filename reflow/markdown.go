package reflow

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer converts accumulated section markdown to body markup.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(markdown string) (string, error)

// Render calls f(markdown).
func (f RendererFunc) Render(markdown string) (string, error) {
	return f(markdown)
}

// MarkdownRenderer renders GitHub-flavoured markdown (tables,
// strikethrough, task lists) as XHTML, treating single newlines as hard
// line breaks, and sanitises the result. It is safe for concurrent use.
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdownRenderer returns a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.AllowAttrs("type", "checked", "disabled").OnElements("input")

	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithXHTML(),
				gmhtml.WithUnsafe(),
			),
		),
		policy: policy,
	}
}

// Render implements Renderer.
func (r *MarkdownRenderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("reflow: render markdown: %w", err)
	}
	return strings.TrimSpace(r.policy.Sanitize(buf.String())), nil
}

// PlainMarkup is the conversion fallback: the escaped text in a single
// paragraph with a line break per newline.
func PlainMarkup(text string) string {
	escaped := html.EscapeString(text)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br/>") + "</p>"
}

// renderSection renders text with r, falling back to PlainMarkup when
// rendering fails or produces nothing.
func renderSection(r Renderer, text string) string {
	markup, err := r.Render(text)
	if err != nil || strings.TrimSpace(markup) == "" {
		return PlainMarkup(text)
	}
	return markup
}

// ErrorMarkup is the body of an error Section: the failure message and the
// page image embedded as a data URI.
func ErrorMarkup(page int, cause error, image []byte, mimeType string) string {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p><em>Error processing page %d: %s</em></p>", page, html.EscapeString(msg))
	if len(image) > 0 {
		if mimeType == "" {
			mimeType = "image/png"
		}
		fmt.Fprintf(&b, `<p><img src="data:%s;base64,%s" alt="Page %d" style="max-width: 100%%; height: auto;"/></p>`,
			html.EscapeString(mimeType), base64.StdEncoding.EncodeToString(image), page)
	}
	return b.String()
}
