// Package google provides a speech recognizer backed by Google Cloud
// Speech-to-Text batch recognition.
package google

import (
	"context"
	"encoding/binary"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/BillStark001/meetscript/internal/engine"
)

// Recognizer implements engine.Recognizer using Google Cloud Speech-to-Text.
type Recognizer struct {
	client *speech.Client
	lang   string
}

// New creates a Google recognizer for the given language code.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, lang string) (*Recognizer, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &Recognizer{client: c, lang: lang}, nil
}

// Recognize transcribes the span in one batch request. Word time offsets are
// requested so each result can be mapped back onto the span's timeline.
func (r *Recognizer) Recognize(ctx context.Context, samples []int16, sampleRate int) (*engine.Recognition, error) {
	resp, err := r.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:       int32(sampleRate),
			LanguageCode:          r.lang,
			EnableWordTimeOffsets: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: encodeLinear16(samples)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	out := &engine.Recognition{Lang: r.lang}
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		seg := engine.Segment{
			Text: alt.Transcript,
			End:  result.ResultEndTime.AsDuration().Milliseconds(),
		}
		if len(alt.Words) > 0 {
			seg.Start = alt.Words[0].StartTime.AsDuration().Milliseconds()
			if last := alt.Words[len(alt.Words)-1]; last.EndTime != nil {
				seg.End = last.EndTime.AsDuration().Milliseconds()
			}
		}
		if result.LanguageCode != "" {
			out.Lang = result.LanguageCode
		}
		out.Segments = append(out.Segments, seg)
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (r *Recognizer) Close() error {
	return r.client.Close()
}

func encodeLinear16(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
