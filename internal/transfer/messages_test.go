package transfer

import (
	"bytes"
	"testing"
)

func TestParseCapacityReply(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		want        CapacityReply
		expectError bool
	}{
		{
			name:    "valid reply",
			payload: "FREE:1048576:32768",
			want:    CapacityReply{FreeBytes: 1048576, ResidentBytes: 32768},
		},
		{
			name:    "zero resident",
			payload: "FREE:400:0",
			want:    CapacityReply{FreeBytes: 400},
		},
		{
			name:        "missing resident field",
			payload:     "FREE:1000",
			expectError: true,
		},
		{
			name:        "wrong prefix",
			payload:     "SPACE:1:2",
			expectError: true,
		},
		{
			name:        "non-numeric",
			payload:     "FREE:abc:def",
			expectError: true,
		},
		{
			name:        "empty",
			payload:     "",
			expectError: true,
		},
		{
			name:        "trailing garbage after resident",
			payload:     "FREE:1:2junk",
			expectError: true,
		},
		{
			name:        "garbage inside free field",
			payload:     "FREE:1x:2",
			expectError: true,
		},
		{
			name:        "negative free",
			payload:     "FREE:-1:2",
			expectError: true,
		},
		{
			name:        "extra field",
			payload:     "FREE:1:2:3",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCapacityReply([]byte(tt.payload))
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCapacityReplyAvailable(t *testing.T) {
	r := CapacityReply{FreeBytes: 400, ResidentBytes: 700}
	if got := r.Available(); got != 1100 {
		t.Errorf("Available() = %d, want 1100", got)
	}
}

func TestFormatChunkWireFormat(t *testing.T) {
	msg := FormatChunk(3, 12, []byte{0x00, 0xFF, 'C'})
	want := append([]byte("CHUNK:3:12:"), 0x00, 0xFF, 'C')
	if !bytes.Equal(msg, want) {
		t.Errorf("FormatChunk = %q, want %q", msg, want)
	}
}

func TestParseChunkRoundTrip(t *testing.T) {
	data := []byte("binary\x00payload:with:colons")
	msg := FormatChunk(7, 42, data)

	index, total, got, err := ParseChunk(msg)
	if err != nil {
		t.Fatalf("ParseChunk failed: %v", err)
	}
	if index != 7 || total != 42 {
		t.Errorf("header = (%d, %d), want (7, 42)", index, total)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("data = %q, want %q", got, data)
	}
}

func TestParseChunkMalformed(t *testing.T) {
	for _, payload := range []string{"", "CHUNK:", "CHUNK:1", "CHUNK:1:2", "CHUNK:x:2:ab", "NOPE:1:2:ab"} {
		if _, _, _, err := ParseChunk([]byte(payload)); err == nil {
			t.Errorf("ParseChunk(%q): expected error, got none", payload)
		}
	}
}

func TestParseAck(t *testing.T) {
	tests := []struct {
		payload     string
		want        int
		expectError bool
	}{
		{"ACK:0", 0, false},
		{"ACK:17", 17, false},
		{"ACK:", 0, true},
		{"ACK:abc", 0, true},
		{"NAK:3", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseAck([]byte(tt.payload))
		if tt.expectError {
			if err == nil {
				t.Errorf("ParseAck(%q): expected error, got none", tt.payload)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAck(%q): unexpected error: %v", tt.payload, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAck(%q) = %d, want %d", tt.payload, got, tt.want)
		}
	}
}

func TestFormatStart(t *testing.T) {
	if got := string(FormatStart(123456)); got != "START:123456" {
		t.Errorf("FormatStart = %q, want START:123456", got)
	}
}

func TestChunkCount(t *testing.T) {
	tests := []struct {
		size      int
		chunkSize int
		want      int
	}{
		{0, 4096, 0},
		{1, 4096, 1},
		{4096, 4096, 1},
		{4097, 4096, 2},
		{10000, 4096, 3},
		{100, 0, 0},
	}

	for _, tt := range tests {
		if got := ChunkCount(tt.size, tt.chunkSize); got != tt.want {
			t.Errorf("ChunkCount(%d, %d) = %d, want %d", tt.size, tt.chunkSize, got, tt.want)
		}
	}
}

func TestCapacityReplyFormatParseRoundTrip(t *testing.T) {
	r := CapacityReply{FreeBytes: 12345, ResidentBytes: 678}
	got, err := ParseCapacityReply(FormatCapacityReply(r))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if got != r {
		t.Errorf("round trip = %+v, want %+v", got, r)
	}
}
