package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/adpcm"
)

const (
	// HeaderSize is the fixed streaming header size:
	// [Seq:4][Predictor:2][StepIndex:1], all big-endian.
	HeaderSize = 7

	// MaxPayloadSize keeps packets well under a single MTU. A 60 ms frame
	// at 16 kHz packs into 480 payload bytes.
	MaxPayloadSize = 1400
)

// Packet is one self-describing streaming datagram. The embedded codec
// state is the encoder state as it was before the frame was encoded, so
// a receiver can decode any packet in isolation regardless of loss.
type Packet struct {
	Seq     uint32      // Frame sequence number, wraps at 2^32
	State   adpcm.State // Codec state at frame start
	Payload []byte      // Nibble-packed ADPCM samples, high nibble first
}

// Marshal serializes the packet into wire format.
func (p *Packet) Marshal() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (maximum %d)", len(p.Payload), MaxPayloadSize)
	}

	buf := make([]byte, HeaderSize+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], p.Seq)
	binary.BigEndian.PutUint16(buf[4:6], uint16(p.State.Predictor))
	buf[6] = p.State.StepIndex
	copy(buf[HeaderSize:], p.Payload)

	return buf, nil
}

// Parse deserializes a datagram into a Packet. The payload is copied so
// the caller may reuse its receive buffer.
func Parse(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: expected at least %d bytes, got %d", HeaderSize, len(data))
	}
	if len(data)-HeaderSize > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (maximum %d)", len(data)-HeaderSize, MaxPayloadSize)
	}

	p := &Packet{
		Seq: binary.BigEndian.Uint32(data[0:4]),
		State: adpcm.State{
			Predictor: int16(binary.BigEndian.Uint16(data[4:6])),
			StepIndex: data[6],
		},
	}

	if p.State.StepIndex > adpcm.MaxStepIndex {
		return nil, fmt.Errorf("invalid step index: %d (maximum %d)", p.State.StepIndex, adpcm.MaxStepIndex)
	}

	if len(data) > HeaderSize {
		p.Payload = make([]byte, len(data)-HeaderSize)
		copy(p.Payload, data[HeaderSize:])
	}

	return p, nil
}

// PackNibbles packs 4-bit codes two per byte, high nibble first. An odd
// final nibble occupies the high bits with the low bits zero.
func PackNibbles(nibbles []byte) []byte {
	packed := make([]byte, (len(nibbles)+1)/2)
	for i := 0; i+1 < len(nibbles); i += 2 {
		packed[i/2] = nibbles[i]<<4 | nibbles[i+1]&0x0F
	}
	if len(nibbles)%2 == 1 {
		packed[len(packed)-1] = nibbles[len(nibbles)-1] << 4
	}
	return packed
}

// UnpackNibbles expands a packed payload back into one nibble per byte.
// sampleCount bounds the result so a zero pad nibble from an odd frame is
// not mistaken for a sample.
func UnpackNibbles(packed []byte, sampleCount int) []byte {
	if max := len(packed) * 2; sampleCount > max {
		sampleCount = max
	}
	nibbles := make([]byte, 0, sampleCount)
	for _, b := range packed {
		nibbles = append(nibbles, b>>4)
		if len(nibbles) < sampleCount {
			nibbles = append(nibbles, b&0x0F)
		}
		if len(nibbles) >= sampleCount {
			break
		}
	}
	return nibbles
}

// SampleCount returns the number of samples a payload of n packed bytes
// can hold at most.
func SampleCount(payloadLen int) int {
	return payloadLen * 2
}

// String returns a human-readable representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{Seq:%d, Predictor:%d, StepIndex:%d, PayloadLen:%d}",
		p.Seq, p.State.Predictor, p.State.StepIndex, len(p.Payload))
}
