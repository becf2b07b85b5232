// Package meeting implements the live transcription core: the chunked audio
// buffer, the segmenter, the session scheduler, provider arbitration, the
// observer broadcaster and translation backfill.
package meeting

import (
	"errors"
	"sync"

	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/observability/metrics"
)

// ErrBufferFull indicates the chunk queue is at capacity and the caller must
// apply backpressure instead of dropping audio.
var ErrBufferFull = errors.New("audio buffer at capacity")

// Span is one contiguous run of samples produced by a drain pass. Start is
// the absolute timestamp of the first sample in milliseconds. ForceComplete
// is set when draining stopped at a gap too large to fill; the caller must
// finalize any partial tail instead of accumulating further.
type Span struct {
	Start         int64
	Samples       []int16
	ForceComplete bool
}

// DurationMillis returns the span length in milliseconds.
func (s *Span) DurationMillis(sampleRate int) int64 {
	return int64(len(s.Samples)) * 1000 / int64(sampleRate)
}

type carryOver struct {
	start   int64
	samples []int16
}

// ChunkBuffer holds pending audio chunks keyed by arrival timestamp and
// reconciles gaps and overlaps into one contiguous span per drain pass.
// Chunks may arrive in any order; ordering is resolved at drain time.
type ChunkBuffer struct {
	mu    sync.Mutex
	queue []models.AudioChunk
	carry *carryOver

	samplesPerMilli int
	maxGapMillis    int64
	maxSamples      int
	capacity        int

	metrics *metrics.Metrics
}

// BufferConfig tunes a ChunkBuffer.
type BufferConfig struct {
	SampleRate    int
	MaxGapMillis  int64
	MaxSpanMillis int64
	QueueCapacity int
}

// NewChunkBuffer creates an empty buffer for the given sample rate.
func NewChunkBuffer(cfg BufferConfig) *ChunkBuffer {
	return &ChunkBuffer{
		samplesPerMilli: cfg.SampleRate / 1000,
		maxGapMillis:    cfg.MaxGapMillis,
		maxSamples:      int(cfg.MaxSpanMillis) * (cfg.SampleRate / 1000),
		capacity:        cfg.QueueCapacity,
		metrics:         metrics.DefaultMetrics,
	}
}

// Enqueue appends a chunk to the arrival queue. Returns ErrBufferFull when
// the queue is at capacity so the transport can apply backpressure.
func (b *ChunkBuffer) Enqueue(chunk models.AudioChunk) error {
	if len(chunk.Samples) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capacity > 0 && len(b.queue) >= b.capacity {
		b.metrics.RecordEnqueue(false)
		return ErrBufferFull
	}
	b.queue = append(b.queue, chunk)
	b.metrics.RecordEnqueue(true)
	return nil
}

// Len returns the number of queued chunks.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Drain consumes queued chunks in arrival order into one contiguous span.
// A retained carry-over seeds the span first. Returns nil when the queue is
// empty; the carry alone never triggers a pass.
//
// Reconciliation per dequeued chunk at time t versus the cursor time last:
//   - t ahead of last beyond the gap maximum: draining stops, the chunk
//     becomes the new carry-over and the span is marked force-complete.
//   - t ahead of last within the maximum: the missing duration is filled
//     with silence before the chunk is appended.
//   - t behind last: the chunk is mixed into the span at its offset,
//     extending the span backwards when it predates the start and appending
//     any tail past the end. Samples are never dropped.
//
// Draining also stops early, without the force-complete flag, once the span
// reaches the configured ceiling, to bound recognition latency.
func (b *ChunkBuffer) Drain() *Span {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return nil
	}

	var (
		data    []int16
		start   int64
		last    int64
		started bool
	)

	if b.carry != nil {
		start = b.carry.start
		last = start + int64(len(b.carry.samples))/int64(b.samplesPerMilli)
		data = append(data, b.carry.samples...)
		started = true
		b.carry = nil
	}

	consumed := 0
	for _, chunk := range b.queue {
		t := int64(chunk.TimestampMillis)

		if started {
			switch {
			case t > last:
				gap := t - last
				if gap > b.maxGapMillis {
					// Too far ahead to bridge. The chunk seeds the next pass
					// and the current span must be finalized as-is.
					b.carry = &carryOver{start: t, samples: chunk.Samples}
					consumed++
					b.metrics.RecordDrain(true)
					b.queue = b.queue[consumed:]
					return &Span{Start: start, Samples: data, ForceComplete: true}
				}
				data = append(data, make([]int16, int(gap)*b.samplesPerMilli)...)
				last = t
				b.metrics.RecordGapFilled(gap)
			case t < last:
				if t < start {
					// Chunk extends the span backwards: grow the head so
					// [t, start) is covered, silence where the chunk runs
					// short of the old start.
					lead := int(start-t) * b.samplesPerMilli
					grown := make([]int16, lead+len(data))
					copy(grown[lead:], data)
					data = grown
					start = t
				}
				off := int(t-start) * b.samplesPerMilli
				mixed := 0
				for i, s := range chunk.Samples {
					pos := off + i
					if pos >= len(data) {
						break
					}
					data[pos] = clipAdd(data[pos], s)
					mixed++
				}
				data = append(data, chunk.Samples[mixed:]...)
				if end := t + int64(len(chunk.Samples))/int64(b.samplesPerMilli); end > last {
					last = end
				}
				consumed++
				b.metrics.RecordOverlapMixed()
				if len(data) >= b.maxSamples {
					b.queue = b.queue[consumed:]
					b.metrics.RecordDrain(false)
					return &Span{Start: start, Samples: data}
				}
				continue
			}
		} else {
			start = t
			last = t
			started = true
		}

		data = append(data, chunk.Samples...)
		last += int64(len(chunk.Samples)) / int64(b.samplesPerMilli)
		consumed++

		if len(data) >= b.maxSamples {
			break
		}
	}

	b.queue = b.queue[consumed:]
	if len(data) == 0 {
		return nil
	}
	b.metrics.RecordDrain(false)
	return &Span{Start: start, Samples: data}
}

func clipAdd(a, b int16) int16 {
	sum := int32(a) + int32(b)
	if sum > 0x7fff {
		return 0x7fff
	}
	if sum < -0x8000 {
		return -0x8000
	}
	return int16(sum)
}

// SetCarry retains unconsumed tail audio as the seed for the next drain.
func (b *ChunkBuffer) SetCarry(start int64, samples []int16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(samples) == 0 {
		b.carry = nil
		return
	}
	b.carry = &carryOver{start: start, samples: samples}
}

// DiscardCarry drops any retained carry-over audio.
func (b *ChunkBuffer) DiscardCarry() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.carry = nil
}

// Carry reports the retained carry-over start and length, if any.
func (b *ChunkBuffer) Carry() (start int64, samples int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.carry == nil {
		return 0, 0, false
	}
	return b.carry.start, len(b.carry.samples), true
}

// Requeue restores a drained span so it survives to the next pass, used when
// a recognition pass fails. A forced-cutoff drain may have left the post-gap
// audio as carry; the span must come first again, so it takes the carry slot
// and the pending audio returns to the queue head.
func (b *ChunkBuffer) Requeue(span *Span) {
	if span == nil || len(span.Samples) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.carry != nil {
		pending := models.AudioChunk{TimestampMillis: uint64(b.carry.start), Samples: b.carry.samples}
		b.queue = append([]models.AudioChunk{pending}, b.queue...)
		b.carry = &carryOver{start: span.Start, samples: span.Samples}
		return
	}
	chunk := models.AudioChunk{TimestampMillis: uint64(span.Start), Samples: span.Samples}
	b.queue = append([]models.AudioChunk{chunk}, b.queue...)
}
