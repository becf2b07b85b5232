// Package mock provides scriptable recognizer and translator implementations
// for testing and for running the server without cloud credentials.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/BillStark001/meetscript/internal/engine"
)

// Recognizer implements engine.Recognizer with scripted responses. Each call
// to Recognize pops the next queued step; when the script runs out it
// synthesizes a single segment spanning the whole input.
type Recognizer struct {
	mu     sync.Mutex
	lang   string
	script []RecognizeStep
	calls  []RecognizeCall
	closed bool
}

// RecognizeStep is one scripted response: a recognition or an error.
type RecognizeStep struct {
	Recognition *engine.Recognition
	Err         error
}

// RecognizeCall records the input of one Recognize invocation.
type RecognizeCall struct {
	SampleCount int
	SampleRate  int
}

// NewRecognizer creates a mock recognizer reporting the given language.
func NewRecognizer(lang string) *Recognizer {
	return &Recognizer{lang: lang}
}

// Enqueue appends scripted steps consumed in order by Recognize.
func (r *Recognizer) Enqueue(steps ...RecognizeStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append(r.script, steps...)
}

// Calls returns a snapshot of the recorded invocations.
func (r *Recognizer) Calls() []RecognizeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecognizeCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recognizer) Recognize(ctx context.Context, samples []int16, sampleRate int) (*engine.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("recognizer closed")
	}
	r.calls = append(r.calls, RecognizeCall{SampleCount: len(samples), SampleRate: sampleRate})

	if len(r.script) > 0 {
		step := r.script[0]
		r.script = r.script[1:]
		if step.Err != nil {
			return nil, step.Err
		}
		return step.Recognition, nil
	}

	durationMillis := int64(0)
	if sampleRate > 0 {
		durationMillis = int64(len(samples)) * 1000 / int64(sampleRate)
	}
	return &engine.Recognition{
		Lang: r.lang,
		Segments: []engine.Segment{
			{Start: 0, End: durationMillis, Text: fmt.Sprintf("mock transcript %d", len(r.calls))},
		},
	}, nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
