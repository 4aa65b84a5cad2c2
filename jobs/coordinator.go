// Package jobs tracks conversion jobs from initialization through chunked
// page upload to asynchronous processing and delivery.
//
// Every job belongs to the client that created it. Pages arrive in a fixed
// number of chunks; once all chunks are in, the job is ready and Start
// hands it to a pipeline converter in the background. Progress and the
// final result are pushed to a Notifier, after which the job is discarded.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/simp-lee/pagebind/config"
	"github.com/simp-lee/pagebind/logger"
	"github.com/simp-lee/pagebind/pipeline"
)

// InitRequest declares a new job.
type InitRequest struct {
	Title       string `json:"title"        validate:"max=500"`
	Author      string `json:"author"       validate:"max=500"`
	Language    string `json:"language"     validate:"omitempty,bcp47_language_tag"`
	TotalPages  int    `json:"total_pages"  validate:"gte=1"`
	TotalChunks int    `json:"total_chunks" validate:"gte=1,lte=10000"`
}

// ChunkReceipt acknowledges a submitted chunk.
type ChunkReceipt struct {
	Index       int  `json:"index"`
	Received    int  `json:"received_chunks"`
	TotalChunks int  `json:"total_chunks"`
	Pages       int  `json:"pages_received"`
	Ready       bool `json:"ready"`
	Duplicate   bool `json:"duplicate"`
}

// Converter turns pages into a finished Artifact.
type Converter interface {
	Convert(ctx context.Context, book pipeline.Book, pages []pipeline.Page, progress pipeline.ProgressFunc) (*pipeline.Artifact, error)
}

// ConverterFactory builds the Converter for one job from the settings
// read at start.
type ConverterFactory func(cfg *config.Config) (Converter, error)

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Store    *Store
	Settings config.Source
	Factory  ConverterFactory
	Sink     pipeline.Sink
	Notifier Notifier
	Logger   *log.Logger
}

// Coordinator owns a Store and runs the job operations against it.
type Coordinator struct {
	store    *Store
	settings config.Source
	factory  ConverterFactory
	sink     pipeline.Sink
	notifier Notifier
	logger   *log.Logger
	validate *validator.Validate
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewCoordinator returns a Coordinator. Store, Settings, Factory and Sink
// are required.
func NewCoordinator(d Deps) *Coordinator {
	c := &Coordinator{
		store:    d.Store,
		settings: d.Settings,
		factory:  d.Factory,
		sink:     d.Sink,
		notifier: d.Notifier,
		logger:   d.Logger,
		validate: validator.New(),
		now:      time.Now,
	}
	if c.store == nil {
		c.store = NewStore()
	}
	if c.notifier == nil {
		c.notifier = Notifiers(nil)
	}
	if c.logger == nil {
		c.logger = logger.Discard()
	}
	return c
}

// Init registers a job for owner and returns its id.
func (c *Coordinator) Init(owner string, req InitRequest) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("%w: missing client id", ErrInvalidRequest)
	}
	if err := c.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	j := &job{
		id:    uuid.NewString(),
		owner: owner,
		book: pipeline.Book{
			Title:    req.Title,
			Author:   req.Author,
			Language: req.Language,
		},
		totalPages:  req.TotalPages,
		totalChunks: req.TotalChunks,
		chunks:      make(map[int][]pipeline.Page),
		state:       StateReceiving,
		created:     c.now(),
	}
	c.store.put(j)
	c.logger.Info("job initialized", "job", j.id, "title", req.Title, "pages", req.TotalPages, "chunks", req.TotalChunks)
	return j.id, nil
}

// SubmitChunk stores the pages of chunk index. Resubmitting a chunk that
// was already received changes nothing. Page indices must be unique
// across the whole job. The job becomes ready when every
// chunk is in; later chunks are rejected with ErrJobSealed.
func (c *Coordinator) SubmitChunk(owner, id string, index int, pages []pipeline.Page) (ChunkReceipt, error) {
	for _, p := range pages {
		if err := c.validate.Struct(p); err != nil {
			return ChunkReceipt{}, fmt.Errorf("%w: page %d: %w", ErrInvalidRequest, p.Index, err)
		}
	}

	var receipt ChunkReceipt
	err := c.store.with(owner, id, func(j *job) error {
		if j.state != StateReceiving {
			return ErrJobSealed
		}
		if index < 0 || index >= j.totalChunks {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrChunkOutOfRange, index, j.totalChunks)
		}
		_, dup := j.chunks[index]
		if !dup {
			if err := checkPageIndices(j, pages); err != nil {
				return err
			}
			j.chunks[index] = append([]pipeline.Page(nil), pages...)
		}
		receipt = ChunkReceipt{
			Index:       index,
			Received:    len(j.chunks),
			TotalChunks: j.totalChunks,
			Pages:       j.pageCount(),
			Duplicate:   dup,
		}
		if len(j.chunks) == j.totalChunks {
			j.state = StateReady
			receipt.Ready = true
			if receipt.Pages != j.totalPages {
				c.logger.Warn("page count mismatch", "job", id, "expected", j.totalPages, "received", receipt.Pages)
			}
		}
		return nil
	})
	if err != nil {
		return ChunkReceipt{}, err
	}
	c.logger.Debug("chunk received", "job", id, "chunk", index, "received", receipt.Received, "total", receipt.TotalChunks)
	return receipt, nil
}

// Start begins processing a ready job in the background and returns
// immediately. The settings are read first; a missing credential leaves
// the job ready and returns ErrMissingCredential.
func (c *Coordinator) Start(ctx context.Context, owner, id string) error {
	if err := c.store.with(owner, id, checkStartable); err != nil {
		return err
	}

	cfg, err := c.settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("jobs: read settings: %w", err)
	}
	if cfg.MissingCredential() {
		return ErrMissingCredential
	}
	conv, err := c.factory(cfg)
	if err != nil {
		return fmt.Errorf("jobs: build converter: %w", err)
	}

	var (
		book  pipeline.Book
		pages []pipeline.Page
	)
	err = c.store.with(owner, id, func(j *job) error {
		if err := checkStartable(j); err != nil {
			return err
		}
		j.state = StateProcessing
		book = j.book
		pages = j.pages()
		return nil
	})
	if err != nil {
		return err
	}
	if book.Language == "" {
		book.Language = cfg.Book.Language
	}

	c.logger.Info("job started", "job", id, "pages", len(pages))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(id, book, pages, conv)
	}()
	return nil
}

// checkPageIndices rejects pages whose index repeats within pages or was
// already received in another chunk.
func checkPageIndices(j *job, pages []pipeline.Page) error {
	seen := make(map[int]bool, j.pageCount()+len(pages))
	for _, stored := range j.chunks {
		for _, p := range stored {
			seen[p.Index] = true
		}
	}
	for _, p := range pages {
		if seen[p.Index] {
			return fmt.Errorf("%w: duplicate page index %d", ErrInvalidRequest, p.Index)
		}
		seen[p.Index] = true
	}
	return nil
}

func checkStartable(j *job) error {
	switch j.state {
	case StateReady:
		return nil
	case StateProcessing:
		return ErrAlreadyStarted
	default:
		return fmt.Errorf("%w: %d of %d chunks received", ErrNotReady, len(j.chunks), j.totalChunks)
	}
}

// run converts and delivers one job, then discards it. A running job has
// no cancellation path.
func (c *Coordinator) run(id string, book pipeline.Book, pages []pipeline.Page, conv Converter) {
	ctx := context.Background()
	progress := func(p pipeline.Progress) {
		c.store.update(id, func(j *job) { j.progress = &p })
		c.notifier.Progress(id, p)
		c.logger.Info("page processed", "job", id, "page", p.Page, "done", p.Done, "total", p.Total, "outcome", p.Outcome)
	}

	done := Completion{JobID: id}
	artifact, err := conv.Convert(ctx, book, pages, progress)
	if err == nil {
		done.Filename = artifact.Filename
		done.Sections = artifact.Sections
		done.Location, err = c.sink.Deliver(ctx, artifact)
		if err != nil {
			err = fmt.Errorf("jobs: deliver: %w", err)
		}
	}
	if err != nil {
		done = Completion{JobID: id, Error: err.Error()}
		c.logger.Error("job failed", "job", id, "err", err)
	} else {
		done.Success = true
		c.logger.Info("job completed", "job", id, "location", done.Location, "sections", done.Sections)
	}

	c.store.delete(id)
	c.notifier.Complete(done)
}

// Status returns a snapshot of a job. Finished jobs are gone and report
// ErrJobNotFound.
func (c *Coordinator) Status(owner, id string) (Snapshot, error) {
	var s Snapshot
	err := c.store.with(owner, id, func(j *job) error {
		s = j.snapshot()
		return nil
	})
	return s, err
}

// Wait blocks until every started job has completed or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
