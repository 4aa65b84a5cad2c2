package epub

import (
	"bytes"
	"fmt"
	"regexp"
)

// contentDir is the directory holding the package document and its resources.
const contentDir = "OEBPS"

// chapterIDPattern restricts chapter IDs to XML NCName-safe file stems.
var chapterIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// chapterHref returns the chapter document path relative to the OPF.
func chapterHref(ch Chapter) string {
	return ch.ID + ".xhtml"
}

// chapterDocument renders a chapter as a standalone XHTML 1.1 document.
// The title is escaped; the body is normalised to well-formed markup first.
func chapterDocument(ch Chapter, lang string) ([]byte, error) {
	body, err := normalizeBody(ch.Body)
	if err != nil {
		return nil, fmt.Errorf("epub: chapter %s body: %w", ch.ID, err)
	}

	var b bytes.Buffer
	b.WriteString(xmlDeclaration)
	b.WriteString(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">` + "\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="` + escapeXML(lang) + `">` + "\n")
	b.WriteString("<head>\n  <title>" + escapeXML(ch.Title) + "</title>\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.Bytes(), nil
}

// normalizeChapters fills empty IDs and titles and rejects duplicate or
// unusable IDs. It returns a new slice; the input is not modified.
func normalizeChapters(in []Chapter) ([]Chapter, error) {
	out := make([]Chapter, len(in))
	seen := map[string]bool{"ncx": true, "nav": true}
	for i, ch := range in {
		if ch.ID == "" {
			ch.ID = fmt.Sprintf("chapter-%d", i+1)
		}
		if !chapterIDPattern.MatchString(ch.ID) {
			return nil, fmt.Errorf("epub: chapter id %q is not a valid file stem", ch.ID)
		}
		if seen[ch.ID] {
			return nil, fmt.Errorf("epub: chapter id %q: %w", ch.ID, ErrDuplicateEntry)
		}
		seen[ch.ID] = true
		if ch.Title == "" {
			ch.Title = fmt.Sprintf("Chapter %d", i+1)
		}
		out[i] = ch
	}
	return out, nil
}
