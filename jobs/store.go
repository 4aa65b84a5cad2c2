package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/simp-lee/pagebind/pipeline"
)

// State is the lifecycle position of a job.
type State string

const (
	StateReceiving  State = "receiving"
	StateReady      State = "ready"
	StateProcessing State = "processing"
)

// job is the mutable record of one conversion. It is only accessed with
// the Store lock held.
type job struct {
	id          string
	owner       string
	book        pipeline.Book
	totalPages  int
	totalChunks int
	chunks      map[int][]pipeline.Page
	state       State
	created     time.Time
	progress    *pipeline.Progress
}

func (j *job) pageCount() int {
	n := 0
	for _, pages := range j.chunks {
		n += len(pages)
	}
	return n
}

// pages returns every received page, ordered by chunk index and then by
// page index.
func (j *job) pages() []pipeline.Page {
	out := make([]pipeline.Page, 0, j.pageCount())
	for i := 0; i < j.totalChunks; i++ {
		out = append(out, j.chunks[i]...)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

func (j *job) snapshot() Snapshot {
	s := Snapshot{
		ID:             j.id,
		State:          j.state,
		Title:          j.book.Title,
		Author:         j.book.Author,
		ChunksReceived: len(j.chunks),
		TotalChunks:    j.totalChunks,
		PagesReceived:  j.pageCount(),
		TotalPages:     j.totalPages,
		Created:        j.created,
	}
	if j.progress != nil {
		p := *j.progress
		s.Progress = &p
	}
	return s
}

// Snapshot is a read-only view of a job.
type Snapshot struct {
	ID             string             `json:"id"`
	State          State              `json:"state"`
	Title          string             `json:"title"`
	Author         string             `json:"author"`
	ChunksReceived int                `json:"chunks_received"`
	TotalChunks    int                `json:"total_chunks"`
	PagesReceived  int                `json:"pages_received"`
	TotalPages     int                `json:"total_pages"`
	Created        time.Time          `json:"created"`
	Progress       *pipeline.Progress `json:"progress,omitempty"`
}

// Store holds the jobs known to one Coordinator.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*job
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*job)}
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// with runs fn on the job id owned by owner while holding the lock.
func (s *Store) with(owner, id string, fn func(*job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.owner != owner {
		return ErrNotOwner
	}
	return fn(j)
}

func (s *Store) put(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.id] = j
}

func (s *Store) update(id string, fn func(*job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

func (s *Store) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}
