package audio

import (
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i*37 - 16000)
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, decoded[i], samples[i])
		}
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	tests := []struct {
		name       string
		samples    []int16
		sampleRate int
	}{
		{"empty samples", nil, 16000},
		{"zero sample rate", []int16{1, 2, 3}, 0},
		{"negative sample rate", []int16{1, 2, 3}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.samples, tt.sampleRate); err == nil {
				t.Error("expected error, got none")
			}
		})
	}
}

func TestDecodeWAVRejectsMalformed(t *testing.T) {
	valid, err := EncodeWAV([]int16{1, 2, 3, 4}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated", func(d []byte) []byte { return d[:20] }},
		{"bad riff", func(d []byte) []byte { d[0] = 'X'; return d }},
		{"bad format tag", func(d []byte) []byte { d[8] = 'X'; return d }},
		{"non-pcm format", func(d []byte) []byte { d[20] = 6; return d }},
		{"stereo", func(d []byte) []byte { d[22] = 2; return d }},
		{"8-bit depth", func(d []byte) []byte { d[34] = 8; return d }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, len(valid))
			copy(data, valid)
			if _, _, err := DecodeWAV(tt.mutate(data)); err == nil {
				t.Error("expected error, got none")
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(16000, 16000); got != 1.0 {
		t.Errorf("Duration(16000, 16000) = %f, want 1.0", got)
	}
	if got := Duration(8000, 16000); got != 0.5 {
		t.Errorf("Duration(8000, 16000) = %f, want 0.5", got)
	}
	if got := Duration(100, 0); got != 0 {
		t.Errorf("Duration with zero rate = %f, want 0", got)
	}
}
