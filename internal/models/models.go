// Package models defines the data structures shared by the streaming core,
// the persistence layer and the event publisher.
package models

// AudioChunk is one uploaded audio frame: mono signed 16-bit PCM samples
// stamped with the capture time of the first sample. Chunks are created by
// the upload connection handler and consumed exactly once by the buffer.
type AudioChunk struct {
	TimestampMillis uint64
	Samples         []int16
}

// TranscriptionResult is one recognized span. Partial results are provisional
// and may be superseded or force-finalized on a later pass; final results are
// persisted and broadcast exactly once.
type TranscriptionResult struct {
	Partial bool   `json:"partial"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
	Lang    string `json:"lang"`
}

// TranslationResult is one backfilled translation, produced once per
// (record, target language) pair lacking that language.
type TranslationResult struct {
	Start      int64  `json:"start"`
	SourceText string `json:"sourceText"`
	Lang       string `json:"lang"`
	Text       string `json:"text"`
}

// MeetingRecord is the persisted form of a finalized transcript segment.
// Translation slots are written independently and idempotently.
type MeetingRecord struct {
	Session      string            `json:"session"`
	Timestamp    int64             `json:"timestamp"`
	Lang         string            `json:"lang"`
	Text         string            `json:"text"`
	Translations map[string]string `json:"translations,omitempty"`
}

// Translation returns the stored translation for a target language and
// whether the slot is filled.
func (r *MeetingRecord) Translation(lang string) (string, bool) {
	if r.Translations == nil {
		return "", false
	}
	t, ok := r.Translations[lang]
	return t, ok
}
