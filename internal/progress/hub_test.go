package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

// TestHubDeliversEvents verifies emitted events reach the sink without an
// explicit flush.
func TestHubDeliversEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 8}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	hub.Emit(sampleEvent(StageRunDone))
	require.Eventually(t, func() bool {
		total := 0
		for _, batch := range sink.Batches() {
			total += len(batch)
		}
		return total == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubCoalescesQueuedEvents checks that events queued while a sink is busy
// are delivered together as one batch.
func TestHubCoalescesQueuedEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	sink.block = make(chan struct{})
	hub := NewHub(Config{BufferSize: 8}, sink)

	hub.Emit(sampleEvent(StageRunStart))
	require.Eventually(t, func() bool {
		return sink.Consuming() == 1
	}, time.Second, 5*time.Millisecond)

	// these queue up while the sink holds the first batch
	srcStart := sampleEvent(StageSourceStart)
	srcStart.Source = "BBC News"
	hub.Emit(srcStart)
	srcDone := sampleEvent(StageSourceDone)
	srcDone.Source = "BBC News"
	hub.Emit(srcDone)
	hub.Emit(sampleEvent(StageRunDone))
	close(sink.block)

	require.NoError(t, hub.Close(context.Background()))
	batches := sink.Batches()
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 1)
	require.Len(t, batches[1], 3)
}

// TestHubEmitNonBlockingWithoutConsumers asserts Emit never blocks callers, even without sinks.
func TestHubEmitNonBlockingWithoutConsumers(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{},
		events: make(chan Event),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageRunStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubFlushOnClose ensures Close drains any buffered events before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4}, sink)

	hub.Emit(sampleEvent(StageRunStart))

	require.NoError(t, hub.Close(context.Background()))
	total := 0
	for _, batch := range sink.Batches() {
		total += len(batch)
	}
	require.Equal(t, 1, total)
}

// TestHubPreservesEventOrder checks that events reach sinks in emit order,
// which downstream UI callbacks depend on.
func TestHubPreservesEventOrder(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 16}, sink)

	stages := []Stage{StageRunStart, StageSourceStart, StageSourceDone, StageRunDone}
	for _, stage := range stages {
		evt := sampleEvent(stage)
		if stage == StageSourceStart || stage == StageSourceDone {
			evt.Source = "BBC News"
		}
		hub.Emit(evt)
	}
	require.NoError(t, hub.Close(context.Background()))

	var got []Stage
	for _, batch := range sink.Batches() {
		for _, evt := range batch {
			got = append(got, evt.Stage)
		}
	}
	require.Equal(t, stages, got)
}

// TestHubDropsInvalidEvents ensures malformed events never reach sinks.
func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4}, sink)

	hub.Emit(Event{Stage: StageRunStart})
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

type stubSink struct {
	mu        sync.Mutex
	batches   [][]Event
	consuming int
	block     chan struct{}
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]Event{}}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	s.consuming++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copyBatch := append([]Event(nil), batch...)
	s.batches = append(s.batches, copyBatch)
	return nil
}

func (s *stubSink) Close(context.Context) error {
	return nil
}

func (s *stubSink) Consuming() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consuming
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

func sampleEvent(stage Stage) Event {
	return Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now(),
		Stage: stage,
	}
}
