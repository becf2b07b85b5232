// Package transport carries the external interfaces: the session-control
// HTTP API and the upload/observe WebSocket channels.
package transport

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleFormat is one of the closed set of wire sample encodings. The format
// is negotiated once at connection setup, never per frame.
type SampleFormat int

const (
	// FormatFloat32 is little-endian IEEE 754 samples in [-1, 1].
	FormatFloat32 SampleFormat = iota
	// FormatInt16LE is signed 16-bit little-endian PCM.
	FormatInt16LE
	// FormatInt16BE is signed 16-bit big-endian PCM.
	FormatInt16BE
)

// ParseSampleFormat resolves a wire format name. An empty name defaults to
// float32, matching the browser AudioContext uploader.
func ParseSampleFormat(name string) (SampleFormat, error) {
	switch name {
	case "", "float32":
		return FormatFloat32, nil
	case "int16", "int16le":
		return FormatInt16LE, nil
	case "int16be":
		return FormatInt16BE, nil
	default:
		return 0, fmt.Errorf("unknown sample format %q", name)
	}
}

func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32:
		return "float32"
	case FormatInt16LE:
		return "int16le"
	case FormatInt16BE:
		return "int16be"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Decode normalizes a wire payload to the internal signed 16-bit mono
// representation. Trailing bytes short of a full sample are dropped.
func (f SampleFormat) Decode(payload []byte) []int16 {
	switch f {
	case FormatFloat32:
		return decodeFloat32(payload)
	case FormatInt16BE:
		return decodeInt16(payload, binary.BigEndian)
	default:
		return decodeInt16(payload, binary.LittleEndian)
	}
}

func decodeFloat32(payload []byte) []int16 {
	n := len(payload) / 4
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(payload[i*4:])
		sample := float64(math.Float32frombits(bits)) * 0x8000
		switch {
		case sample > 0x7fff:
			out[i] = 0x7fff
		case sample < -0x8000:
			out[i] = -0x8000
		default:
			out[i] = int16(sample)
		}
	}
	return out
}

func decodeInt16(payload []byte, order binary.ByteOrder) []int16 {
	n := len(payload) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(order.Uint16(payload[i*2:]))
	}
	return out
}
