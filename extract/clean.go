package extract

import (
	"regexp"
	"strings"
)

var (
	codeFence     = regexp.MustCompile("^```(?:html|xhtml|xml|json|markdown)?\\s*\\n([\\s\\S]*?)\\n```$")
	backtickPair  = regexp.MustCompile("^`([\\s\\S]*?)`$")
	leadingHashes = regexp.MustCompile(`^#+\s*`)
	leadingBold   = regexp.MustCompile(`^\*\*.*?\*\*\s*`)

	chapterMarker = regexp.MustCompile(`(?m)^--- NEW CHAPTER: (.+?) ---$`)
)

// Clean strips wrapping the model adds around its answer: an enclosing
// code fence or backtick pair, then the hashes of a leading heading or a
// leading bold run. Markdown hard breaks ("  \n") become paragraph breaks.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if m := backtickPair.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	s = leadingHashes.ReplaceAllString(s, "")
	s = leadingBold.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, "  \n", "\n\n")
}

// SplitChapterMarker finds the first "--- NEW CHAPTER: <title> ---" line,
// removes it and returns the remaining trimmed text and the title. ok is
// false, and text is returned unchanged, when there is no marker.
func SplitChapterMarker(text string) (rest, title string, ok bool) {
	loc := chapterMarker.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, "", false
	}
	title = strings.TrimSpace(text[loc[2]:loc[3]])
	rest = strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return rest, title, true
}

// Parsed is a cleaned service response.
type Parsed struct {
	Text         string
	ChapterStart bool
	ChapterTitle string
}

// Parse applies Clean and SplitChapterMarker to a raw response.
func Parse(raw string) Parsed {
	text, title, ok := SplitChapterMarker(Clean(raw))
	return Parsed{Text: text, ChapterStart: ok, ChapterTitle: title}
}
