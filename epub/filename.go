package epub

import (
	"regexp"
	"strings"
)

// maxFilenamePart is the length cap applied to each sanitized name part.
const maxFilenamePart = 100

var (
	filenameDisallowed = regexp.MustCompile(`[^A-Za-z0-9\-_\s\p{Z}\x{FEFF}]`)
	filenameSpaces     = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
)

// SanitizeFilename keeps ASCII letters, digits, hyphens, underscores and
// whitespace (Unicode spaces included), turns each whitespace run into one
// underscore, and truncates the result to 100 characters.
func SanitizeFilename(s string) string {
	s = filenameDisallowed.ReplaceAllString(s, "")
	s = filenameSpaces.ReplaceAllString(s, "_")
	if len(s) > maxFilenamePart {
		s = s[:maxFilenamePart]
	}
	return s
}

// Filename returns the delivery name "<title> - <author>.epub" with both
// parts sanitized. An empty author becomes UnknownAuthor.
func Filename(title, author string) string {
	if strings.TrimSpace(author) == "" {
		author = UnknownAuthor
	}
	return SanitizeFilename(title) + " - " + SanitizeFilename(author) + ".epub"
}
