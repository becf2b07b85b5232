package meeting

import (
	"context"
	"errors"
	"testing"

	"github.com/BillStark001/meetscript/internal/engine"
	"github.com/BillStark001/meetscript/internal/engine/mock"
)

func testSegmenter(rec engine.Recognizer) *Segmenter {
	return NewSegmenter(rec, SegmenterConfig{
		SampleRate:        testSampleRate,
		CompleteGapMillis: 1000,
		MaxSegmentMillis:  10000,
	})
}

func TestProcess_Classification(t *testing.T) {
	tests := []struct {
		name          string
		spanMillis    int
		forceComplete bool
		segments      []engine.Segment
		wantFinals    int
		wantPartial   bool
	}{
		{
			name:       "trailing segment stays partial",
			spanMillis: 3000,
			segments: []engine.Segment{
				{Start: 0, End: 1200, Text: "first"},
				{Start: 1200, End: 2800, Text: "second"},
			},
			wantFinals:  1,
			wantPartial: true,
		},
		{
			name:          "force complete finalizes everything",
			spanMillis:    3000,
			forceComplete: true,
			segments: []engine.Segment{
				{Start: 0, End: 1200, Text: "first"},
				{Start: 1200, End: 2800, Text: "second"},
			},
			wantFinals:  2,
			wantPartial: false,
		},
		{
			name:       "completeness gap finalizes the tail",
			spanMillis: 3000,
			segments: []engine.Segment{
				{Start: 0, End: 2000, Text: "done talking"},
			},
			wantFinals:  1,
			wantPartial: false,
		},
		{
			name:       "overlong tail segment is finalized",
			spanMillis: 12000,
			segments: []engine.Segment{
				{Start: 0, End: 11500, Text: "very long utterance"},
			},
			wantFinals:  1,
			wantPartial: false,
		},
		{
			name:        "zero segments",
			spanMillis:  3000,
			segments:    nil,
			wantFinals:  0,
			wantPartial: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mock.NewRecognizer("en-US")
			rec.Enqueue(mock.RecognizeStep{
				Recognition: &engine.Recognition{Lang: "en-US", Segments: tt.segments},
			})
			s := testSegmenter(rec)

			span := &Span{
				Start:         10_000,
				Samples:       samplesOf(tt.spanMillis, 1),
				ForceComplete: tt.forceComplete,
			}
			out, err := s.Process(context.Background(), span)
			if err != nil {
				t.Fatalf("process failed: %v", err)
			}
			if len(out.Finals) != tt.wantFinals {
				t.Errorf("expected %d finals, got %d", tt.wantFinals, len(out.Finals))
			}
			if (out.Partial != nil) != tt.wantPartial {
				t.Errorf("expected partial=%v, got %v", tt.wantPartial, out.Partial != nil)
			}
			if !tt.wantPartial && out.RetainOffset != len(span.Samples) {
				t.Errorf("expected retain offset %d with no partial, got %d", len(span.Samples), out.RetainOffset)
			}
		})
	}
}

func TestProcess_AbsoluteTimestamps(t *testing.T) {
	rec := mock.NewRecognizer("en-US")
	rec.Enqueue(mock.RecognizeStep{
		Recognition: &engine.Recognition{
			Lang: "en-US",
			Segments: []engine.Segment{
				{Start: 0, End: 800, Text: "final part"},
				{Start: 800, End: 2900, Text: "partial tail"},
			},
		},
	})
	s := testSegmenter(rec)

	span := &Span{Start: 5000, Samples: samplesOf(3000, 1)}
	out, err := s.Process(context.Background(), span)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(out.Finals) != 1 {
		t.Fatalf("expected 1 final, got %d", len(out.Finals))
	}
	final := out.Finals[0]
	if final.Start != 5000 || final.End != 5800 {
		t.Errorf("expected final [5000,5800], got [%d,%d]", final.Start, final.End)
	}
	if final.Partial {
		t.Error("final segment marked partial")
	}
	if final.Lang != "en-US" {
		t.Errorf("expected lang en-US, got %s", final.Lang)
	}

	if out.Partial == nil {
		t.Fatal("expected a partial tail")
	}
	if out.Partial.Start != 5800 || out.Partial.End != 7900 {
		t.Errorf("expected partial [5800,7900], got [%d,%d]", out.Partial.Start, out.Partial.End)
	}
	if !out.Partial.Partial {
		t.Error("partial tail not marked partial")
	}

	// Retained samples begin at the partial's relative start.
	wantOffset := 800 * (testSampleRate / 1000)
	if out.RetainOffset != wantOffset {
		t.Errorf("expected retain offset %d, got %d", wantOffset, out.RetainOffset)
	}
}

func TestProcess_EngineError(t *testing.T) {
	rec := mock.NewRecognizer("en-US")
	rec.Enqueue(mock.RecognizeStep{Err: errors.New("engine unavailable")})
	s := testSegmenter(rec)

	_, err := s.Process(context.Background(), &Span{Start: 0, Samples: samplesOf(100, 1)})
	if err == nil {
		t.Fatal("expected an error from the engine")
	}
}
