package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/pagebind/epub"
	"github.com/simp-lee/pagebind/extract"
	"github.com/simp-lee/pagebind/reflow"
)

// recordingSleeper records every wait instead of sleeping.
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func (r *recordingSleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range r.waits {
		sum += d
	}
	return sum
}

// scriptedExtractor answers per page image: the first byte of the image
// selects the script entry. An entry without text always fails.
type scriptedExtractor struct {
	responses map[byte]string
	calls     map[byte]int
}

func newScriptedExtractor(responses map[byte]string) *scriptedExtractor {
	return &scriptedExtractor{responses: responses, calls: map[byte]int{}}
}

func (s *scriptedExtractor) Extract(_ context.Context, req extract.Request) (string, error) {
	key := req.Image[0]
	s.calls[key]++
	text, ok := s.responses[key]
	if !ok {
		return "", fmt.Errorf("service unavailable (call %d)", s.calls[key])
	}
	return text, nil
}

func page(i int) Page {
	return Page{Index: i, Image: []byte{byte(i)}, MIMEType: "image/png"}
}

func TestRun_ExhaustedPage(t *testing.T) {
	ext := newScriptedExtractor(nil)
	sleeper := &recordingSleeper{}
	o := New(ext, WithSleeper(sleeper))

	sections, err := o.Run(context.Background(), []Page{page(1)}, nil)
	require.NoError(t, err)
	require.Len(t, sections, 1)

	sec := sections[0]
	assert.Equal(t, reflow.KindError, sec.Kind)
	assert.Equal(t, "error-page-1", sec.ID)
	assert.Equal(t, "Page 1 (Error)", sec.Title)
	assert.Contains(t, sec.Markup, "service unavailable (call 3)")
	assert.Contains(t, sec.Markup, "data:image/png;base64,AQ==")

	assert.Equal(t, 3, ext.calls[1])
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, time.Second}, sleeper.waits)
	assert.Equal(t, 5*time.Second, sleeper.total())
}

func TestRun_ReflowAndProgress(t *testing.T) {
	ext := newScriptedExtractor(map[byte]string{
		1: "```markdown\nIntro text,\n```",
		2: "continued here.",
		3: "--- NEW CHAPTER: The Start ---\n\nIt began.",
	})
	sleeper := &recordingSleeper{}
	var progress []Progress
	o := New(ext, WithSleeper(sleeper))

	sections, err := o.Run(context.Background(), []Page{page(1), page(2), page(3)}, func(p Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "section-1", sections[0].ID)
	assert.Equal(t, "Section 1", sections[0].Title)
	assert.Equal(t, "Intro text, continued here.", sections[0].Text)
	assert.Equal(t, []int{1, 2}, sections[0].Pages)

	assert.Equal(t, "section-2", sections[1].ID)
	assert.Equal(t, "The Start", sections[1].Title)
	assert.Equal(t, reflow.KindChapter, sections[1].Kind)
	assert.Equal(t, []int{3}, sections[1].Pages)
	assert.Contains(t, sections[1].Markup, "It began.")

	require.Len(t, progress, 3)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Done)
		assert.Equal(t, i+1, p.Page)
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, OutcomeExtracted, p.Outcome)
		assert.Equal(t, 1, p.Attempts)
	}
	assert.Equal(t, 3*time.Second, sleeper.total())
}

func TestRun_FailedPageKeepsOpenSection(t *testing.T) {
	ext := newScriptedExtractor(map[byte]string{
		1: "The story starts",
		3: "and goes on.",
	})
	var progress []Progress
	o := New(ext, WithSleeper(&recordingSleeper{}))

	sections, err := o.Run(context.Background(), []Page{page(1), page(2), page(3)}, func(p Progress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "The story starts and goes on.", sections[0].Text)
	assert.Equal(t, []int{1, 3}, sections[0].Pages)
	assert.Equal(t, "error-page-2", sections[1].ID)

	require.Len(t, progress, 3)
	assert.Equal(t, OutcomeFailed, progress[1].Outcome)
	assert.Equal(t, 3, progress[1].Attempts)
	assert.Equal(t, "service unavailable (call 3)", progress[1].Error)
}

func TestRun_PromptAndTokens(t *testing.T) {
	var got extract.Request
	ext := extract.ExtractorFunc(func(_ context.Context, req extract.Request) (string, error) {
		got = req
		return "text", nil
	})
	o := New(ext, WithSleeper(&recordingSleeper{}), WithPrompt("custom prompt"), WithMaxTokens(42))

	_, err := o.Run(context.Background(), []Page{page(7)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom prompt", got.Prompt)
	assert.Equal(t, 42, got.MaxTokens)
	assert.Equal(t, "image/png", got.MIMEType)
	assert.Zero(t, got.Temperature)
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ext := newScriptedExtractor(map[byte]string{1: "text"})

	_, err := New(ext, WithSleeper(&recordingSleeper{})).Run(ctx, []Page{page(1), page(2)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ext.calls[2])
}

func TestConvert(t *testing.T) {
	ext := newScriptedExtractor(map[byte]string{
		1: "--- NEW CHAPTER: Ch & <1> ---\n\nFirst page.",
		2: "Second page.",
	})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	o := New(ext, WithSleeper(&recordingSleeper{}), WithMetrics(m))

	a, err := o.Convert(context.Background(), Book{Title: "My Book", Author: "Jane"}, []Page{page(1), page(2), page(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "My_Book - Jane.epub", a.Filename)
	assert.Equal(t, 2, a.Sections)

	rep, err := epub.Verify(a.Data)
	require.NoError(t, err)
	assert.Equal(t, "My Book", rep.Metadata.Title)
	assert.Equal(t, []string{"OEBPS/section-1.xhtml", "OEBPS/error-page-3.xhtml"}, rep.Spine)
	require.Len(t, rep.TOC, 2)
	assert.Equal(t, "Ch & <1>", rep.TOC[0].Title)
	assert.Contains(t, rep.Text["OEBPS/section-1.xhtml"], "First page.")
	assert.Contains(t, rep.Text["OEBPS/section-1.xhtml"], "Second page.")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pages.WithLabelValues(OutcomeExtracted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pages.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.attempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues(ResultSuccess)))
}

func TestConvert_NothingToAssemble(t *testing.T) {
	ext := newScriptedExtractor(map[byte]string{1: "   "})
	m := NewMetrics(prometheus.NewRegistry())
	o := New(ext, WithSleeper(&recordingSleeper{}), WithMetrics(m))

	a, err := o.Convert(context.Background(), Book{Title: "Blank"}, []Page{page(1)}, nil)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, epub.ErrNoChapters)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues(ResultFailure)))
}

func TestAssemble_DefaultsMetadata(t *testing.T) {
	data, md, err := Assemble(Book{}, []reflow.Section{{ID: "section-1", Title: "Section 1", Markup: "<p>x</p>"}})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "Untitled", md.Title)
	assert.Equal(t, epub.UnknownAuthor, md.Author)
}
