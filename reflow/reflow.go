package reflow

import (
	"fmt"
	"strings"
)

// State is the reducer state between fragments. The zero value is the
// start state: nothing finished and no open Section.
type State struct {
	// Finished holds closed Sections in output order.
	Finished []Section

	// Open is the Section currently accumulating text, or nil.
	Open *Section

	// held keeps error Sections seen while Open was set; they follow Open
	// in the output so that Sections stay in first-page order.
	held []Section
}

// Pending reports the number of error Sections waiting for the open
// Section to close.
func (s State) Pending() int {
	return len(s.held)
}

func (s State) clone() State {
	next := State{
		Finished: append([]Section(nil), s.Finished...),
		held:     append([]Section(nil), s.held...),
	}
	if s.Open != nil {
		open := s.Open.clone()
		next.Open = &open
	}
	return next
}

// Engine folds fragments into Sections. Its methods do not modify their
// State argument, so an Engine may be shared between jobs.
type Engine struct {
	renderer Renderer
}

// NewEngine returns an Engine that renders closed Sections with r, or with
// a MarkdownRenderer when r is nil.
func NewEngine(r Renderer) *Engine {
	if r == nil {
		r = NewMarkdownRenderer()
	}
	return &Engine{renderer: r}
}

// Step returns the state after consuming f.
//
// A failed fragment becomes an error Section and leaves the open Section
// untouched. The error Section is finished at once when no Section is
// open; otherwise it is held and emitted right after the open Section
// closes, so output stays in first-page order. A chapter start closes the
// open Section and opens a chapter seeded with f's text. Any other fragment opens a section when none is
// open, or is appended to the open one with Join.
func (e *Engine) Step(s State, f Fragment) State {
	next := s.clone()

	switch {
	case f.Failed:
		sec := errorSection(f)
		if next.Open != nil {
			next.held = append(next.held, sec)
		} else {
			next.Finished = append(next.Finished, sec)
		}

	case f.ChapterStart:
		next = e.close(next)
		n := len(next.Finished) + 1
		title := strings.TrimSpace(f.ChapterTitle)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", n)
		}
		next.Open = newSection(n, title, KindChapter, f)

	case next.Open == nil:
		n := len(next.Finished) + 1
		next.Open = newSection(n, fmt.Sprintf("Section %d", n), KindSection, f)

	default:
		next.Open.Text = Join(next.Open.Text, f.Text)
		next.Open.Pages = append(next.Open.Pages, f.PageIndex)
	}
	return next
}

// Finish closes the open Section and returns every Section in output order.
func (e *Engine) Finish(s State) []Section {
	return e.close(s.clone()).Finished
}

// Reflow runs Step over fragments and returns Finish.
func (e *Engine) Reflow(fragments []Fragment) []Section {
	var s State
	for _, f := range fragments {
		s = e.Step(s, f)
	}
	return e.Finish(s)
}

// close renders and finishes the open Section, then releases held error
// Sections. An open Section without text is dropped.
func (e *Engine) close(s State) State {
	if s.Open != nil {
		if strings.TrimSpace(s.Open.Text) != "" {
			sec := *s.Open
			sec.Markup = renderSection(e.renderer, sec.Text)
			s.Finished = append(s.Finished, sec)
		}
		s.Open = nil
	}
	s.Finished = append(s.Finished, s.held...)
	s.held = nil
	return s
}

func newSection(n int, title string, kind Kind, f Fragment) *Section {
	return &Section{
		ID:    fmt.Sprintf("section-%d", n),
		Title: title,
		Kind:  kind,
		Text:  f.Text,
		Pages: []int{f.PageIndex},
	}
}

func errorSection(f Fragment) Section {
	return Section{
		ID:     fmt.Sprintf("error-page-%d", f.PageIndex),
		Title:  fmt.Sprintf("Page %d (Error)", f.PageIndex),
		Kind:   KindError,
		Markup: ErrorMarkup(f.PageIndex, f.Err, f.Image, f.MIMEType),
		Pages:  []int{f.PageIndex},
	}
}
