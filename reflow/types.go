// Package reflow merges per-page extracted text into chapters and sections.
//
// Pages arrive as Fragments in ascending page order. An Engine folds them
// into Sections: a chapter marker closes the open Section and starts a
// chapter, unmarked pages are appended to the open Section with either a
// space or a paragraph break (see Join), and pages whose extraction failed
// become standalone error Sections carrying the page image. Closing a
// Section renders its accumulated markdown to XHTML.
package reflow

// Kind classifies a Section.
type Kind string

const (
	KindChapter Kind = "chapter"
	KindSection Kind = "section"
	KindError   Kind = "error"
)

// Fragment is the extraction result for one page.
type Fragment struct {
	// PageIndex is the page number, unique and ascending within a job.
	PageIndex int

	// Text is the cleaned markdown transcription with any chapter marker removed.
	Text string

	// ChapterStart is set when the page opens a new chapter.
	ChapterStart bool

	// ChapterTitle is the marker title; empty means a generated label.
	ChapterTitle string

	// Failed marks a page whose extraction attempts were exhausted.
	Failed bool

	// Err is the last extraction error of a failed page.
	Err error

	// Image and MIMEType hold the original page, embedded in error Sections.
	Image    []byte
	MIMEType string
}

// Section is one unit of output: a chapter, an unmarked run of pages, or a
// failed page.
type Section struct {
	ID    string
	Title string
	Kind  Kind

	// Text is the accumulated markdown. It is empty for error Sections.
	Text string

	// Markup is the rendered body, set when the Section is closed.
	Markup string

	// Pages lists the contributing page indices in order.
	Pages []int
}

func (s Section) clone() Section {
	s.Pages = append([]int(nil), s.Pages...)
	return s
}
