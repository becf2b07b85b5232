package transport

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestParseSampleFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    SampleFormat
		wantErr bool
	}{
		{"", FormatFloat32, false},
		{"float32", FormatFloat32, false},
		{"int16", FormatInt16LE, false},
		{"int16le", FormatInt16LE, false},
		{"int16be", FormatInt16BE, false},
		{"pcm24", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSampleFormat(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSampleFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseSampleFormat(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDecode_Float32(t *testing.T) {
	inputs := []float32{0, 0.5, 1.0, -1.0, 1.5, -1.5}
	want := []int16{0, 16384, 32767, -32768, 32767, -32768}

	payload := make([]byte, len(inputs)*4)
	for i, f := range inputs {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(f))
	}

	got := FormatFloat32.Decode(payload)
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecode_Int16Endianness(t *testing.T) {
	want := []int16{0, 1, -1, 0x1234, -0x1234}

	le := make([]byte, len(want)*2)
	be := make([]byte, len(want)*2)
	for i, s := range want {
		binary.LittleEndian.PutUint16(le[i*2:], uint16(s))
		binary.BigEndian.PutUint16(be[i*2:], uint16(s))
	}

	for name, tc := range map[string]struct {
		format  SampleFormat
		payload []byte
	}{
		"little endian": {FormatInt16LE, le},
		"big endian":    {FormatInt16BE, be},
	} {
		got := tc.format.Decode(tc.payload)
		if len(got) != len(want) {
			t.Fatalf("%s: expected %d samples, got %d", name, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: sample %d: got %d, want %d", name, i, got[i], want[i])
			}
		}
	}
}

func TestDecode_TrimsPartialSamples(t *testing.T) {
	if got := FormatInt16LE.Decode([]byte{1, 0, 2}); len(got) != 1 {
		t.Errorf("int16: expected trailing odd byte dropped, got %d samples", len(got))
	}
	if got := FormatFloat32.Decode(make([]byte, 7)); len(got) != 1 {
		t.Errorf("float32: expected partial sample dropped, got %d samples", len(got))
	}
	if got := FormatInt16BE.Decode(nil); len(got) != 0 {
		t.Errorf("empty payload: expected 0 samples, got %d", len(got))
	}
}
