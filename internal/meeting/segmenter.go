package meeting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/engine"
	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/observability/logging"
	"github.com/BillStark001/meetscript/internal/observability/metrics"
)

// SegmenterConfig tunes the partial/final classification thresholds.
type SegmenterConfig struct {
	SampleRate int
	// CompleteGapMillis finalizes a trailing segment when the audio runs at
	// least this far past its end.
	CompleteGapMillis int64
	// MaxSegmentMillis finalizes a trailing segment once it grows this long.
	MaxSegmentMillis int64
}

// SegmentOutput is the result of one recognition pass over a span.
type SegmentOutput struct {
	// Finals are the segments classified complete, in temporal order.
	Finals []models.TranscriptionResult
	// Partial is the trailing segment still accumulating, if any.
	Partial *models.TranscriptionResult
	// RetainOffset is the sample offset at which the retained partial begins;
	// equal to the span length when nothing is retained.
	RetainOffset int
}

// Segmenter turns a contiguous span into finalized result segments plus at
// most one carried-over partial segment via the recognition engine.
type Segmenter struct {
	recognizer engine.Recognizer
	cfg        SegmenterConfig
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// NewSegmenter creates a segmenter bound to a recognition engine.
func NewSegmenter(recognizer engine.Recognizer, cfg SegmenterConfig) *Segmenter {
	return &Segmenter{
		recognizer: recognizer,
		cfg:        cfg,
		log:        logging.WithComponent("segmenter"),
		metrics:    metrics.DefaultMetrics,
	}
}

// Process recognizes the span and classifies the returned segments. The last
// segment stays partial unless the span is force-complete, the engine
// returned nothing after it, the audio runs well past its end, or the segment
// itself is overlong. Absolute timestamps are the span start plus each
// segment's relative offsets.
func (s *Segmenter) Process(ctx context.Context, span *Span) (*SegmentOutput, error) {
	start := time.Now()
	rec, err := s.recognizer.Recognize(ctx, span.Samples, s.cfg.SampleRate)
	s.metrics.RecordRecognize("recognizer", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	out := &SegmentOutput{RetainOffset: len(span.Samples)}
	segments := rec.Segments
	if len(segments) == 0 {
		return out, nil
	}

	spanMillis := span.DurationMillis(s.cfg.SampleRate)
	lastIdx := len(segments) - 1
	tail := segments[lastIdx]
	tailFinal := span.ForceComplete ||
		spanMillis-tail.End >= s.cfg.CompleteGapMillis ||
		tail.End-tail.Start > s.cfg.MaxSegmentMillis

	finalCount := lastIdx
	if tailFinal {
		finalCount = len(segments)
	}
	for _, seg := range segments[:finalCount] {
		out.Finals = append(out.Finals, s.convert(seg, span.Start, false, rec.Lang))
	}
	if !tailFinal {
		partial := s.convert(tail, span.Start, true, rec.Lang)
		out.Partial = &partial
		out.RetainOffset = int(tail.Start) * (s.cfg.SampleRate / 1000)
		if out.RetainOffset > len(span.Samples) {
			out.RetainOffset = len(span.Samples)
		}
	}

	s.metrics.RecordSegments(len(out.Finals), len(segments)-finalCount)
	s.log.Debug().
		Int64("spanStart", span.Start).
		Int64("spanMillis", spanMillis).
		Int("finals", len(out.Finals)).
		Bool("partial", out.Partial != nil).
		Msg("Span segmented")
	return out, nil
}

func (s *Segmenter) convert(seg engine.Segment, spanStart int64, partial bool, lang string) models.TranscriptionResult {
	return models.TranscriptionResult{
		Partial: partial,
		Start:   spanStart + seg.Start,
		End:     spanStart + seg.End,
		Text:    seg.Text,
		Lang:    lang,
	}
}
