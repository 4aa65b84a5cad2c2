package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "  Hello world.  ", "Hello world."},
		{"markdown fence", "```markdown\nHello\n\nWorld\n```", "Hello\n\nWorld"},
		{"bare fence", "```\nHello\n```", "Hello"},
		{"html fence", "```html\n<p>x</p>\n```", "<p>x</p>"},
		{"backticks", "`inline text`", "inline text"},
		{"leading heading hashes", "## Chapter 2\nBody", "Chapter 2\nBody"},
		{"leading bold run", "**Page 12** The text", "The text"},
		{"hard breaks become paragraphs", "one  \ntwo", "one\n\ntwo"},
		{"fence then heading", "```markdown\n# Title\nText\n```", "Title\nText"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestSplitChapterMarker(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantRest  string
		wantTitle string
		wantOK    bool
	}{
		{
			name:      "marker first",
			text:      "--- NEW CHAPTER: The Start ---\n\n# 1\nThe Start\n\nIt began.",
			wantRest:  "# 1\nThe Start\n\nIt began.",
			wantTitle: "The Start",
			wantOK:    true,
		},
		{
			name:      "marker mid page",
			text:      "End of the last one.\n--- NEW CHAPTER: Two ---\nBody",
			wantRest:  "End of the last one.\n\nBody",
			wantTitle: "Two",
			wantOK:    true,
		},
		{
			name:      "only first marker removed",
			text:      "--- NEW CHAPTER: A ---\n--- NEW CHAPTER: B ---",
			wantRest:  "--- NEW CHAPTER: B ---",
			wantTitle: "A",
			wantOK:    true,
		},
		{
			name:     "no marker",
			text:     "Just text --- NEW CHAPTER: inline ---",
			wantRest: "Just text --- NEW CHAPTER: inline ---",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, title, ok := SplitChapterMarker(tt.text)
			assert.Equal(t, tt.wantRest, rest)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParse(t *testing.T) {
	got := Parse("```markdown\n--- NEW CHAPTER: Ch & <1> ---\n\nFirst line.  \nSecond.\n```")
	assert.Equal(t, Parsed{Text: "First line.\n\nSecond.", ChapterStart: true, ChapterTitle: "Ch & <1>"}, got)

	assert.Equal(t, Parsed{Text: "plain"}, Parse("plain"))
}

func TestPromptOrDefault(t *testing.T) {
	assert.Equal(t, DefaultPrompt, PromptOrDefault("  "))
	assert.Equal(t, "custom", PromptOrDefault("custom"))
	assert.Contains(t, DefaultPrompt, "--- NEW CHAPTER: [Chapter Title] ---")
}
