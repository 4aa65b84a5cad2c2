package reflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrapRenderer wraps text in a paragraph without parsing it.
var wrapRenderer = RendererFunc(func(md string) (string, error) {
	return "<p>" + md + "</p>", nil
})

func page(i int, text string) Fragment {
	return Fragment{PageIndex: i, Text: text}
}

func chapter(i int, title, text string) Fragment {
	return Fragment{PageIndex: i, Text: text, ChapterStart: true, ChapterTitle: title}
}

func failed(i int, msg string) Fragment {
	return Fragment{PageIndex: i, Failed: true, Err: errors.New(msg), Image: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}
}

func pagesOf(sections []Section) [][]int {
	out := make([][]int, len(sections))
	for i, s := range sections {
		out[i] = s.Pages
	}
	return out
}

func TestReflow_SingleChapterBoundary(t *testing.T) {
	frags := []Fragment{
		page(0, "Opening words"),
		page(1, "continue here."),
		chapter(2, "The Middle", "A new chapter."),
		page(3, "and it goes on"),
		page(4, "until the end."),
	}
	got := NewEngine(wrapRenderer).Reflow(frags)

	require.Len(t, got, 2)
	assert.Equal(t, [][]int{{0, 1}, {2, 3, 4}}, pagesOf(got))

	assert.Equal(t, "section-1", got[0].ID)
	assert.Equal(t, "Section 1", got[0].Title)
	assert.Equal(t, KindSection, got[0].Kind)
	assert.Equal(t, "Opening words continue here.", got[0].Text)
	assert.Equal(t, "<p>Opening words continue here.</p>", got[0].Markup)

	assert.Equal(t, "section-2", got[1].ID)
	assert.Equal(t, "The Middle", got[1].Title)
	assert.Equal(t, KindChapter, got[1].Kind)
	assert.Equal(t, "A new chapter.\n\nand it goes on until the end.", got[1].Text)
}

func TestReflow_ChapterAtFirstPage(t *testing.T) {
	got := NewEngine(wrapRenderer).Reflow([]Fragment{
		chapter(1, "", "Intro."),
		page(2, "More."),
		chapter(3, "", "Next."),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Chapter 1", got[0].Title)
	assert.Equal(t, "Chapter 2", got[1].Title)
	assert.Equal(t, [][]int{{1, 2}, {3}}, pagesOf(got))
}

func TestReflow_ErrorPageDoesNotDisturbOpenSection(t *testing.T) {
	e := NewEngine(wrapRenderer)
	clean := e.Reflow([]Fragment{page(1, "Alpha begins"), page(3, "and continues.")})
	withError := e.Reflow([]Fragment{page(1, "Alpha begins"), failed(2, "timeout"), page(3, "and continues.")})

	require.Len(t, clean, 1)
	require.Len(t, withError, 2)
	assert.Equal(t, clean[0].Text, withError[0].Text)
	assert.Equal(t, "Alpha begins and continues.", withError[0].Text)

	errSec := withError[1]
	assert.Equal(t, KindError, errSec.Kind)
	assert.Equal(t, "error-page-2", errSec.ID)
	assert.Equal(t, []int{2}, errSec.Pages)
	assert.Contains(t, errSec.Markup, "Error processing page 2: timeout")
	assert.Contains(t, errSec.Markup, `src="data:image/png;base64,`)
}

func TestReflow_ErrorWithoutOpenSectionIsImmediate(t *testing.T) {
	got := NewEngine(wrapRenderer).Reflow([]Fragment{failed(1, "boom"), page(2, "Text.")})
	require.Len(t, got, 2)
	assert.Equal(t, "error-page-1", got[0].ID)
	assert.Equal(t, "section-2", got[1].ID)
	assert.Equal(t, "Section 2", got[1].Title)
}

func TestReflow_HeldErrorsFollowClosedSection(t *testing.T) {
	got := NewEngine(wrapRenderer).Reflow([]Fragment{
		page(1, "One."),
		failed(2, "a"),
		failed(3, "b"),
		chapter(4, "Two", "Second."),
	})
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"section-1", "error-page-2", "error-page-3", "section-4"}, ids)
}

func TestReflow_EmptyPageKeepsIndexWithoutJoin(t *testing.T) {
	got := NewEngine(wrapRenderer).Reflow([]Fragment{page(1, "Text."), page(2, "  "), page(3, "More.")})
	require.Len(t, got, 1)
	assert.Equal(t, []int{1, 2, 3}, got[0].Pages)
	assert.Equal(t, "Text.\n\nMore.", got[0].Text)
}

func TestReflow_EmptySectionDropped(t *testing.T) {
	got := NewEngine(wrapRenderer).Reflow([]Fragment{chapter(1, "Blank", ""), chapter(2, "Real", "Body.")})
	require.Len(t, got, 1)
	assert.Equal(t, "Real", got[0].Title)
	assert.Equal(t, "section-1", got[0].ID)
}

func TestEngine_StepDoesNotModifyInput(t *testing.T) {
	e := NewEngine(wrapRenderer)
	s1 := e.Step(State{}, page(1, "First"))
	s2 := e.Step(s1, page(2, "second"))
	_ = e.Step(s2, failed(3, "x"))

	require.NotNil(t, s1.Open)
	assert.Equal(t, "First", s1.Open.Text)
	assert.Equal(t, []int{1}, s1.Open.Pages)
	assert.Equal(t, "First second", s2.Open.Text)
	assert.Zero(t, s2.Pending())

	finished := e.Finish(s2)
	require.Len(t, finished, 1)
	assert.NotNil(t, s2.Open, "Finish must not close the caller's state")
}

func TestEngine_Deterministic(t *testing.T) {
	frags := []Fragment{page(1, "# Heading"), page(2, "Body text,"), page(3, "continued."), failed(4, "x")}
	e := NewEngine(nil)
	assert.Equal(t, e.Reflow(frags), e.Reflow(frags))
}

func TestEngine_RendererFallback(t *testing.T) {
	failing := RendererFunc(func(string) (string, error) { return "", errors.New("bad markdown") })
	got := NewEngine(failing).Reflow([]Fragment{page(1, "line one\nline <two>")})
	require.Len(t, got, 1)
	assert.Equal(t, "<p>line one<br/>line &lt;two&gt;</p>", got[0].Markup)

	empty := RendererFunc(func(string) (string, error) { return "  ", nil })
	got = NewEngine(empty).Reflow([]Fragment{page(1, "kept")})
	assert.Equal(t, "<p>kept</p>", got[0].Markup)
}
