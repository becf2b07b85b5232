// Package engine defines the interfaces for speech recognition and text
// translation providers. Providers work in batch mode: the session scheduler
// drains a contiguous audio span, hands it to the recognizer and receives
// timed segments back in one call.
package engine

import "context"

// Segment is a timed piece of recognized speech. Start and End are
// milliseconds relative to the beginning of the recognized span.
type Segment struct {
	Start int64
	End   int64
	Text  string
}

// Recognition is the result of one recognition pass over an audio span.
type Recognition struct {
	Segments []Segment
	Lang     string
}

// Recognizer converts PCM audio into timed transcript segments.
type Recognizer interface {
	// Recognize transcribes a span of 16-bit mono PCM samples.
	Recognize(ctx context.Context, samples []int16, sampleRate int) (*Recognition, error)

	// Close releases the provider's resources.
	Close() error
}

// Translator converts finalized transcript text into a target language.
type Translator interface {
	// Translate renders text from sourceLang into targetLang.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// Close releases the provider's resources.
	Close() error
}
