package meeting

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/observability/logging"
	"github.com/BillStark001/meetscript/internal/observability/metrics"
)

// EventType tags the payload carried by a broadcast event.
type EventType string

const (
	EventTranscription EventType = "transcription"
	EventTranslation   EventType = "translation"
)

// Event is one transcript or translation update fanned out to observers.
// Payload is a *models.TranscriptionResult or *models.TranslationResult.
type Event struct {
	Type    EventType
	Payload any
}

// Sink receives broadcast events. A Send error marks the sink dead and it is
// pruned on the next delivery.
type Sink interface {
	Send(event Event) error
}

// Broadcaster fans events out to all connected observer sinks through an
// explicit queue, decoupling production from delivery.
type Broadcaster struct {
	mu    sync.Mutex
	sinks map[string]Sink

	queue   chan Event
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewBroadcaster creates a broadcaster with the given queue depth.
func NewBroadcaster(session string, queueDepth int) *Broadcaster {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Broadcaster{
		sinks:   make(map[string]Sink),
		queue:   make(chan Event, queueDepth),
		log:     logging.WithSession("broadcast", session),
		metrics: metrics.DefaultMetrics,
	}
}

// Join registers an observer sink under a connection identity.
func (b *Broadcaster) Join(id string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sinks[id]; !ok {
		b.sinks[id] = sink
		b.metrics.ObserversActive.Inc()
	}
	b.log.Debug().Str("observer", id).Int("observers", len(b.sinks)).Msg("Observer joined")
}

// Leave removes an observer sink.
func (b *Broadcaster) Leave(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sinks[id]; ok {
		delete(b.sinks, id)
		b.metrics.ObserversActive.Dec()
	}
}

// Observers returns the number of connected sinks.
func (b *Broadcaster) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}

// Publish enqueues an event for delivery. It blocks while the queue is full
// rather than dropping events; Run must be active for progress.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue and delivers each event to every registered sink,
// pruning sinks whose Send fails. Returns when ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.queue:
			b.deliver(event)
		}
	}
}

func (b *Broadcaster) deliver(event Event) {
	b.mu.Lock()
	targets := make(map[string]Sink, len(b.sinks))
	for id, sink := range b.sinks {
		targets[id] = sink
	}
	b.mu.Unlock()

	var dead []string
	for id, sink := range targets {
		if err := sink.Send(event); err != nil {
			b.log.Debug().Err(err).Str("observer", id).Msg("Observer send failed, pruning")
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		b.Leave(id)
	}
}
