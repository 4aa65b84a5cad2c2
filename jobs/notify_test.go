package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/pagebind/pipeline"
)

func TestBroker_DeliversAndCloses(t *testing.T) {
	b := NewBroker(4)
	events, cancel := b.Subscribe("job-1")
	defer cancel()
	other, cancelOther := b.Subscribe("job-2")
	defer cancelOther()

	b.Progress("job-1", pipeline.Progress{Page: 1, Done: 1, Total: 2})
	b.Complete(Completion{JobID: "job-1", Success: true})

	ev := <-events
	require.NotNil(t, ev.Progress)
	assert.Equal(t, 1, ev.Progress.Page)
	ev = <-events
	require.NotNil(t, ev.Completion)
	assert.True(t, ev.Completion.Success)
	_, open := <-events
	assert.False(t, open, "channel closes after completion")

	assert.Empty(t, other)
}

func TestBroker_DropsWhenFull(t *testing.T) {
	b := NewBroker(1)
	events, cancel := b.Subscribe("job-1")
	defer cancel()

	b.Progress("job-1", pipeline.Progress{Page: 1})
	b.Progress("job-1", pipeline.Progress{Page: 2})

	ev := <-events
	assert.Equal(t, 1, ev.Progress.Page)
	assert.Empty(t, events)
}

func TestBroker_CancelIsIdempotent(t *testing.T) {
	b := NewBroker(1)
	events, cancel := b.Subscribe("job-1")
	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)

	b.Progress("job-1", pipeline.Progress{Page: 1})
	b.Complete(Completion{JobID: "job-1"})
}

func TestBroker_CompleteAfterCancel(t *testing.T) {
	b := NewBroker(1)
	_, cancel := b.Subscribe("job-1")
	b.Complete(Completion{JobID: "job-1"})
	cancel()
}

func TestNotifiers(t *testing.T) {
	a, c := &recordingNotifier{}, &recordingNotifier{}
	ns := Notifiers{a, c}
	ns.Progress("j", pipeline.Progress{Page: 1})
	ns.Complete(Completion{JobID: "j"})
	assert.Len(t, a.progress, 1)
	assert.Len(t, c.completions, 1)
}

func TestBroker_CompletionSurvivesFullBuffer(t *testing.T) {
	b := NewBroker(2)
	events, cancel := b.Subscribe("job-1")
	defer cancel()

	b.Progress("job-1", pipeline.Progress{Page: 1})
	b.Progress("job-1", pipeline.Progress{Page: 2})
	b.Complete(Completion{JobID: "job-1", Error: "verify failed"})

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Progress)
	assert.Equal(t, 2, got[0].Progress.Page, "oldest progress event is evicted")
	require.NotNil(t, got[1].Completion)
	assert.False(t, got[1].Completion.Success)
	assert.Equal(t, "verify failed", got[1].Completion.Error)
}
