package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/simp-lee/pagebind/epub"
	"github.com/simp-lee/pagebind/extract"
	"github.com/simp-lee/pagebind/reflow"
)

// DefaultPagePause is the wait after every page.
const DefaultPagePause = time.Second

// DefaultMaxTokens caps the length of one page transcription.
const DefaultMaxTokens = 5000

// Orchestrator runs the per-page extraction loop. It holds no per-job
// state and may serve several jobs at once.
type Orchestrator struct {
	extractor extract.Extractor
	policy    extract.Policy
	prompt    string
	maxTokens int
	pagePause time.Duration
	sleeper   extract.Sleeper
	engine    *reflow.Engine
	metrics   *Metrics
	logger    *log.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the per-page retry policy.
func WithPolicy(p extract.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithPrompt overrides the extraction prompt; blank keeps the default.
func WithPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.prompt = extract.PromptOrDefault(prompt) }
}

// WithMaxTokens sets the response token cap.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// WithPagePause sets the wait after each page.
func WithPagePause(d time.Duration) Option {
	return func(o *Orchestrator) { o.pagePause = d }
}

// WithSleeper replaces the clock for both retry and page pauses.
func WithSleeper(s extract.Sleeper) Option {
	return func(o *Orchestrator) { o.sleeper = s }
}

// WithRenderer sets the markdown renderer used when Sections close.
func WithRenderer(r reflow.Renderer) Option {
	return func(o *Orchestrator) { o.engine = reflow.NewEngine(r) }
}

// WithMetrics records page and job counters on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New returns an Orchestrator calling ext.
func New(ext extract.Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor: ext,
		policy:    extract.DefaultPolicy(),
		prompt:    extract.DefaultPrompt,
		maxTokens: DefaultMaxTokens,
		pagePause: DefaultPagePause,
		sleeper:   extract.ClockSleeper,
		logger:    log.New(io.Discard),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = reflow.NewEngine(nil)
	}
	if o.policy.Sleeper == nil {
		o.policy.Sleeper = o.sleeper
	}
	return o
}

// Run extracts every page in order and returns the reflowed Sections.
// A page whose attempts are exhausted becomes an error Section; only a
// done context stops the loop early.
func (o *Orchestrator) Run(ctx context.Context, pages []Page, progress ProgressFunc) ([]reflow.Section, error) {
	var state reflow.State
	for i, p := range pages {
		frag, attempts, err := o.extractPage(ctx, p)
		if err != nil {
			return nil, err
		}
		state = o.engine.Step(state, frag)

		pr := Progress{
			Page:     p.Index,
			Done:     i + 1,
			Total:    len(pages),
			Outcome:  OutcomeExtracted,
			Attempts: attempts,
		}
		if frag.Failed {
			pr.Outcome = OutcomeFailed
			pr.Error = frag.Err.Error()
		}
		o.metrics.page(pr.Outcome, attempts)
		if progress != nil {
			progress(pr)
		}

		if err := o.sleeper.Sleep(ctx, o.pagePause); err != nil {
			return nil, err
		}
	}
	return o.engine.Finish(state), nil
}

func (o *Orchestrator) extractPage(ctx context.Context, p Page) (reflow.Fragment, int, error) {
	policy := o.policy
	policy.OnFailure = func(attempt int, err error) {
		o.logger.Warn("extraction attempt failed", "page", p.Index, "attempt", attempt, "err", err)
	}
	req := extract.Request{
		Image:     p.Image,
		MIMEType:  p.MIMEType,
		Prompt:    o.prompt,
		MaxTokens: o.maxTokens,
	}

	out := extract.Attempt(ctx, o.extractor, req, policy)
	frag := reflow.Fragment{PageIndex: p.Index, Image: p.Image, MIMEType: p.MIMEType}
	if !out.OK() {
		if err := ctx.Err(); err != nil {
			return frag, out.Attempts, err
		}
		o.logger.Error("page extraction exhausted", "page", p.Index, "attempts", out.Attempts, "err", out.Err)
		frag.Failed = true
		frag.Err = out.Err
		return frag, out.Attempts, nil
	}

	parsed := extract.Parse(out.Text)
	frag.Text = parsed.Text
	frag.ChapterStart = parsed.ChapterStart
	frag.ChapterTitle = parsed.ChapterTitle
	if parsed.ChapterStart {
		o.logger.Info("chapter start", "page", p.Index, "title", parsed.ChapterTitle)
	}
	return frag, out.Attempts, nil
}

// Convert runs the pages and assembles the result into a verified ePub.
// Any assembly or verification error is returned and no Artifact is
// produced.
func (o *Orchestrator) Convert(ctx context.Context, book Book, pages []Page, progress ProgressFunc) (*Artifact, error) {
	start := o.now()
	a, err := o.convert(ctx, book, pages, progress)
	elapsed := o.now().Sub(start)
	if err != nil {
		o.metrics.job(ResultFailure, elapsed)
		return nil, err
	}
	a.Elapsed = elapsed
	o.metrics.job(ResultSuccess, elapsed)
	return a, nil
}

func (o *Orchestrator) convert(ctx context.Context, book Book, pages []Page, progress ProgressFunc) (*Artifact, error) {
	sections, err := o.Run(ctx, pages, progress)
	if err != nil {
		return nil, err
	}
	data, md, err := Assemble(book, sections)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Filename: epub.Filename(md.Title, md.Author),
		Data:     data,
		Sections: len(sections),
	}, nil
}

// Assemble renders sections as an ePub and verifies the archive. It
// returns the bytes and the metadata actually written.
func Assemble(book Book, sections []reflow.Section) ([]byte, epub.Metadata, error) {
	b := epub.NewBook(epub.Metadata{
		Title:      book.Title,
		Author:     book.Author,
		Language:   book.Language,
		Identifier: book.Identifier,
	})
	for _, s := range sections {
		b.AddChapter(epub.Chapter{ID: s.ID, Title: s.Title, Body: s.Markup})
	}
	data, err := b.Bytes()
	if err != nil {
		return nil, epub.Metadata{}, fmt.Errorf("pipeline: build epub: %w", err)
	}
	if _, err := epub.Verify(data); err != nil {
		return nil, epub.Metadata{}, fmt.Errorf("pipeline: verify epub: %w", err)
	}
	return data, b.Metadata(), nil
}
