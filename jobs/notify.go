package jobs

import (
	"sync"

	"github.com/simp-lee/pagebind/pipeline"
)

// Completion is the final notification of a job.
type Completion struct {
	JobID    string `json:"job_id"`
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Location string `json:"location,omitempty"`
	Sections int    `json:"sections,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Notifier receives out-of-band job events. Implementations must not block.
type Notifier interface {
	Progress(jobID string, p pipeline.Progress)
	Complete(c Completion)
}

// Event is one notification delivered by a Broker.
type Event struct {
	JobID      string             `json:"job_id"`
	Progress   *pipeline.Progress `json:"progress,omitempty"`
	Completion *Completion        `json:"completion,omitempty"`
}

// Broker fans job events out to subscribers. Sends never block: a progress
// event is dropped for a subscriber whose buffer is full, while a
// completion evicts the oldest queued event so it is always delivered.
type Broker struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]map[chan Event]struct{}
}

// NewBroker returns a Broker giving each subscriber buffer slots.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{buffer: buffer, subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for jobID and a cancel function
// that closes it. The channel is also closed after the completion event.
func (b *Broker) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan Event]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(jobID, ch) })
	}
}

func (b *Broker) remove(jobID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[jobID][ch]; !ok {
		return
	}
	delete(b.subs[jobID], ch)
	if len(b.subs[jobID]) == 0 {
		delete(b.subs, jobID)
	}
	close(ch)
}

// Progress implements Notifier.
func (b *Broker) Progress(jobID string, p pipeline.Progress) {
	b.publish(Event{JobID: jobID, Progress: &p}, false)
}

// Complete implements Notifier. Subscribers of the job are closed after
// the event is offered.
func (b *Broker) Complete(c Completion) {
	b.publish(Event{JobID: c.JobID, Completion: &c}, true)
}

func (b *Broker) publish(ev Event, last bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			if last {
				// The completion replaces the oldest queued event.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- ev:
				default:
				}
			}
		}
		if last {
			close(ch)
		}
	}
	if last {
		delete(b.subs, ev.JobID)
	}
}

// Notifiers combines several Notifiers.
type Notifiers []Notifier

// Progress implements Notifier.
func (ns Notifiers) Progress(jobID string, p pipeline.Progress) {
	for _, n := range ns {
		n.Progress(jobID, p)
	}
}

// Complete implements Notifier.
func (ns Notifiers) Complete(c Completion) {
	for _, n := range ns {
		n.Complete(c)
	}
}
