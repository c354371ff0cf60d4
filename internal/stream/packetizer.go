package stream

import (
	"fmt"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/adpcm"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/audio"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/packet"
)

// FrameSamples returns the number of samples in one frame of the given
// duration in milliseconds.
func FrameSamples(sampleRate, frameMs int) int {
	return sampleRate * frameMs / 1000
}

// Packetizer converts a PCM sample source into a sequence of streaming
// packets. Each packet header carries the codec state as it was before
// the frame was encoded, which is what makes every packet independently
// decodable.
type Packetizer struct {
	encoder *adpcm.Encoder
	frame   []int16
	nibbles []byte
	seq     uint32
}

// NewPacketizer creates a Packetizer producing frames of frameSamples
// samples.
func NewPacketizer(frameSamples int) (*Packetizer, error) {
	if frameSamples <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d samples", frameSamples)
	}
	if (frameSamples+1)/2 > packet.MaxPayloadSize {
		return nil, fmt.Errorf("frame of %d samples exceeds maximum payload size", frameSamples)
	}

	return &Packetizer{
		encoder: adpcm.NewEncoder(),
		frame:   make([]int16, frameSamples),
		nibbles: make([]byte, frameSamples),
	}, nil
}

// Next pulls one frame from the source and encodes it. It returns the
// source's error unchanged when no frame is available (io.EOF for an
// exhausted file source).
func (p *Packetizer) Next(src audio.Source) (*packet.Packet, error) {
	if err := src.ReadFrame(p.frame); err != nil {
		return nil, err
	}

	// Snapshot first: the header must describe the state the decoder
	// starts from, not the state after the frame.
	state := p.encoder.State()

	for i, sample := range p.frame {
		p.nibbles[i] = p.encoder.EncodeSample(sample)
	}

	pkt := &packet.Packet{
		Seq:     p.seq,
		State:   state,
		Payload: packet.PackNibbles(p.nibbles),
	}
	p.seq++ // wraps at 2^32 by uint32 arithmetic

	return pkt, nil
}

// ResetCodec clears the encoder state for a loop restart. The sequence
// number keeps counting so the receiver sees the restart as a continuous
// stream.
func (p *Packetizer) ResetCodec() {
	p.encoder.Reset()
}

// FrameSize returns the frame length in samples.
func (p *Packetizer) FrameSize() int {
	return len(p.frame)
}
