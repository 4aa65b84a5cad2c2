package extract

import "strings"

// DefaultPrompt asks for a markdown transcription of one book page and for
// a chapter marker line when the page opens a chapter.
const DefaultPrompt = `You are a book preservation assistant. Your job is to look at scanned images of books and rewrite them as markdown. You will be provided with a page from a book. Your job is to convert the page into valid markdown. We don't want to lose any data, so make sure to include all the text you see in the image.

Indentations should be handled by adding a new line between paragraphs. Do not add indents. If multiple indents appear in a row, they should have gaps between them.
--- example ---
"Character A talking," he said.

"Character B talking," she said. "This is more stuff that is said"

"Well that makes sense," he replied.

Now here's more text in a big long paragraph.
--- end example ---

Important! If you notice the page has a chapter title, write the following to mark the start of a new chapter (Exclude the brackets):

--- NEW CHAPTER: [Chapter Title] ---

# Chapter Number if it exists
Chapter Title`

// PromptOrDefault returns override, or DefaultPrompt when override is blank.
func PromptOrDefault(override string) string {
	if strings.TrimSpace(override) == "" {
		return DefaultPrompt
	}
	return override
}
