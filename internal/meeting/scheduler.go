package meeting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/engine"
	"github.com/BillStark001/meetscript/internal/events"
	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/observability/logging"
	"github.com/BillStark001/meetscript/internal/observability/metrics"
	"github.com/BillStark001/meetscript/internal/storage"
)

var (
	// ErrMeetingAlreadyStarted rejects init while a session is active.
	ErrMeetingAlreadyStarted = errors.New("the meeting is already started")
	// ErrMeetingNotStarted rejects operations requiring an active session.
	ErrMeetingNotStarted = errors.New("the meeting is not started yet")
)

// RecognizerFactory opens a recognition engine connection for a session.
type RecognizerFactory func(ctx context.Context) (engine.Recognizer, error)

// SchedulerConfig tunes the per-session cycle and its components.
type SchedulerConfig struct {
	SampleRate        int
	MaxGapMillis      int64
	MaxSpanMillis     int64
	QueueCapacity     int
	CompleteGapMillis int64
	MaxSegmentMillis  int64
	SilenceThreshold  int
	PassPause         time.Duration
	CyclePause        time.Duration
	TargetLanguages   []string
	BroadcastQueue    int
}

// Scheduler is the session registry. It owns at most one active session at a
// time; a second init is rejected with ErrMeetingAlreadyStarted.
type Scheduler struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg           SchedulerConfig
	store         storage.Store
	publisher     *events.Publisher
	newRecognizer RecognizerFactory
	translator    engine.Translator

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewScheduler creates a session scheduler over the given collaborators.
func NewScheduler(
	cfg SchedulerConfig,
	store storage.Store,
	publisher *events.Publisher,
	newRecognizer RecognizerFactory,
	translator engine.Translator,
) *Scheduler {
	return &Scheduler{
		sessions:      make(map[string]*Session),
		cfg:           cfg,
		store:         store,
		publisher:     publisher,
		newRecognizer: newRecognizer,
		translator:    translator,
		log:           logging.WithComponent("scheduler"),
		metrics:       metrics.DefaultMetrics,
	}
}

// Init allocates a session, initializes its recognition engine connection
// and persistence namespace, and starts the repeating cycle task. An empty
// id gets a generated one; a zero startedAt defaults to now.
func (s *Scheduler) Init(ctx context.Context, id, name string, startedAt time.Time) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) > 0 {
		return nil, ErrMeetingAlreadyStarted
	}

	if id == "" {
		id = uuid.NewString()
	}
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	recognizer, err := s.newRecognizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("open recognizer: %w", err)
	}
	if err := s.store.InitSession(ctx, id, name, startedAt); err != nil {
		recognizer.Close()
		return nil, fmt.Errorf("init session storage: %w", err)
	}

	sess := newSession(s.cfg, id, name, startedAt, recognizer, s.translator, s.store, s.publisher)
	s.sessions[id] = sess
	sess.start()
	s.metrics.RecordSessionStart()
	s.log.Info().Str("session", id).Str("name", name).Msg("Session started")
	return sess, nil
}

// Close stops the active session's cycle task, releases the recognition
// engine connection and transitions back to idle.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	var sess *Session
	for id, active := range s.sessions {
		sess = active
		delete(s.sessions, id)
		break
	}
	s.mu.Unlock()

	if sess == nil {
		return ErrMeetingNotStarted
	}
	sess.stop()
	s.metrics.RecordSessionClose()
	s.log.Info().Str("session", sess.ID).Msg("Session closed")
	return nil
}

// Active returns the currently active session, or nil when idle.
func (s *Scheduler) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		return sess
	}
	return nil
}

// Shutdown closes the active session if one exists.
func (s *Scheduler) Shutdown() {
	if err := s.Close(); err != nil && !errors.Is(err, ErrMeetingNotStarted) {
		s.log.Error().Err(err).Msg("Shutdown close failed")
	}
}

// Session is one live meeting's transcription/translation context. It owns
// the chunk buffer, carry-over, silence counter, provider slot, observer set
// and the background cycle task.
type Session struct {
	ID        string
	Name      string
	StartedAt time.Time

	buffer      *ChunkBuffer
	segmenter   *Segmenter
	arbiter     *ProviderArbiter
	broadcaster *Broadcaster
	backfill    *TranslationBackfill
	store       storage.Store
	publisher   *events.Publisher
	recognizer  engine.Recognizer

	passPause        time.Duration
	cyclePause       time.Duration
	silenceThreshold int

	mu         sync.Mutex
	lastResult *models.TranscriptionResult
	silence    int

	cancel context.CancelFunc
	done   chan struct{}

	log     zerolog.Logger
	metrics *metrics.Metrics
}

func newSession(
	cfg SchedulerConfig,
	id, name string,
	startedAt time.Time,
	recognizer engine.Recognizer,
	translator engine.Translator,
	store storage.Store,
	publisher *events.Publisher,
) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		StartedAt: startedAt,
		buffer: NewChunkBuffer(BufferConfig{
			SampleRate:    cfg.SampleRate,
			MaxGapMillis:  cfg.MaxGapMillis,
			MaxSpanMillis: cfg.MaxSpanMillis,
			QueueCapacity: cfg.QueueCapacity,
		}),
		segmenter: NewSegmenter(recognizer, SegmenterConfig{
			SampleRate:        cfg.SampleRate,
			CompleteGapMillis: cfg.CompleteGapMillis,
			MaxSegmentMillis:  cfg.MaxSegmentMillis,
		}),
		arbiter:          NewProviderArbiter(id),
		broadcaster:      NewBroadcaster(id, cfg.BroadcastQueue),
		backfill:         NewTranslationBackfill(store, translator, id, cfg.TargetLanguages),
		store:            store,
		publisher:        publisher,
		recognizer:       recognizer,
		passPause:        cfg.PassPause,
		cyclePause:       cfg.CyclePause,
		silenceThreshold: cfg.SilenceThreshold,
		done:             make(chan struct{}),
		log:              logging.WithSession("session", id),
		metrics:          metrics.DefaultMetrics,
	}
}

func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.broadcaster.Run(ctx)
	go s.run(ctx)
}

// stop cancels the cycle task, waits for it to observe cancellation and
// releases the recognition engine connection. An in-flight engine call is
// allowed to complete.
func (s *Session) stop() {
	s.cancel()
	<-s.done
	if err := s.recognizer.Close(); err != nil {
		s.log.Error().Err(err).Msg("Recognizer close failed")
	}
}

// run is the repeating cycle task: a transcription pass, a short pause, a
// translation pass, a longer pause, until cancelled.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		s.transcribePass(ctx)
		s.metrics.RecordPass("transcription", time.Since(start).Seconds())

		if !sleepCtx(ctx, s.passPause) {
			return
		}

		start = time.Now()
		s.translatePass(ctx)
		s.metrics.RecordPass("translation", time.Since(start).Seconds())

		if !sleepCtx(ctx, s.cyclePause) {
			return
		}
	}
}

// transcribePass drains the buffer, runs recognition and delivers results.
// An empty drain bumps the silence counter; at the threshold a held partial
// result is force-finalized ahead of any engine output and the carry-over is
// discarded, so an utterance cannot stay partial forever through silence.
func (s *Session) transcribePass(ctx context.Context) {
	span := s.buffer.Drain()

	var finals []models.TranscriptionResult

	s.mu.Lock()
	if span == nil {
		if s.silence < s.silenceThreshold {
			s.silence++
		}
	} else {
		s.silence = 0
	}
	if s.silence >= s.silenceThreshold && s.lastResult != nil {
		flushed := *s.lastResult
		flushed.Partial = false
		finals = append(finals, flushed)
		s.lastResult = nil
		s.silence = 0
		s.buffer.DiscardCarry()
		s.metrics.RecordSilenceFlush()
		s.log.Info().Int64("start", flushed.Start).Msg("Silence flush, partial promoted to final")
	}
	s.mu.Unlock()

	var partial *models.TranscriptionResult
	if span != nil {
		out, err := s.segmenter.Process(ctx, span)
		if err != nil {
			// Keep the audio for the next pass; the session must survive
			// engine failures.
			s.log.Error().Err(err).Msg("Recognition pass failed, requeueing span")
			s.buffer.Requeue(span)
		} else {
			finals = append(finals, out.Finals...)
			partial = out.Partial
			s.mu.Lock()
			s.lastResult = out.Partial
			s.mu.Unlock()
			if out.Partial != nil {
				s.buffer.SetCarry(out.Partial.Start, span.Samples[out.RetainOffset:])
			}
		}
	}

	for i := range finals {
		s.deliverFinal(ctx, &finals[i])
	}
	if partial != nil {
		s.deliverPartial(ctx, partial)
	}
}

// deliverFinal persists a finalized segment exactly once and broadcasts it.
// A duplicate-key conflict is a soft warning, not a pass failure.
func (s *Session) deliverFinal(ctx context.Context, result *models.TranscriptionResult) {
	rec := models.MeetingRecord{
		Session:   s.ID,
		Timestamp: result.Start,
		Lang:      result.Lang,
		Text:      result.Text,
	}
	switch err := s.store.AddRecord(ctx, rec); {
	case errors.Is(err, storage.ErrDuplicateRecord):
		s.metrics.RecordPersist(true)
		s.log.Warn().Int64("start", result.Start).Msg("Duplicate record, keeping existing")
	case err != nil:
		s.log.Error().Err(err).Int64("start", result.Start).Msg("Record persist failed")
	default:
		s.metrics.RecordPersist(false)
	}

	if err := s.publisher.PublishFinal(ctx, s.ID, result); err != nil {
		s.log.Error().Err(err).Msg("Final event publish failed")
	}
	if err := s.broadcaster.Publish(ctx, Event{Type: EventTranscription, Payload: result}); err != nil {
		s.log.Debug().Err(err).Msg("Final broadcast dropped")
	}
}

// deliverPartial broadcasts a provisional update; partials are never persisted.
func (s *Session) deliverPartial(ctx context.Context, result *models.TranscriptionResult) {
	if err := s.publisher.PublishPartial(ctx, s.ID, result); err != nil {
		s.log.Error().Err(err).Msg("Partial event publish failed")
	}
	if err := s.broadcaster.Publish(ctx, Event{Type: EventTranscription, Payload: result}); err != nil {
		s.log.Debug().Err(err).Msg("Partial broadcast dropped")
	}
}

// translatePass backfills missing translations and broadcasts each result.
func (s *Session) translatePass(ctx context.Context) {
	for _, result := range s.backfill.Run(ctx, s.ID) {
		if err := s.publisher.PublishTranslation(ctx, s.ID, &result); err != nil {
			s.log.Error().Err(err).Msg("Translation event publish failed")
		}
		if err := s.broadcaster.Publish(ctx, Event{Type: EventTranslation, Payload: &result}); err != nil {
			s.log.Debug().Err(err).Msg("Translation broadcast dropped")
		}
	}
}

// EnqueueAudio admits a chunk from the given upload connection. Audio from a
// non-active provider is silently discarded per the arbitration contract.
func (s *Session) EnqueueAudio(connID string, chunk models.AudioChunk) error {
	if !s.arbiter.Admit(connID) {
		s.metrics.RecordProviderDrop()
		return nil
	}
	s.metrics.RecordProviderFrame(len(chunk.Samples) * 2)
	return s.buffer.Enqueue(chunk)
}

// ReleaseProvider clears the provider slot if held by the connection.
func (s *Session) ReleaseProvider(connID string) {
	s.arbiter.Release(connID)
}

// Join registers an observer sink for broadcast events.
func (s *Session) Join(connID string, sink Sink) {
	s.broadcaster.Join(connID, sink)
}

// Leave removes an observer sink.
func (s *Session) Leave(connID string) {
	s.broadcaster.Leave(connID)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
