package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ErrOverrun is returned by capture devices when the hardware buffer
// overflowed and samples were lost. It is transient: the read that
// reported it still delivered whatever samples survived.
var ErrOverrun = errors.New("capture buffer overrun")

// Source supplies fixed-length PCM frames to the packetizer.
type Source interface {
	// ReadFrame fills frame completely, blocking if the source is paced by
	// hardware. A finite source zero-pads its final partial frame and
	// returns io.EOF once no samples remain at all.
	ReadFrame(frame []int16) error
}

// FileSource iterates over a fully-decoded audio asset.
type FileSource struct {
	samples []int16
	pos     int
}

// NewFileSource decodes an entire WAV asset into raw PCM up front and
// verifies it matches the stream's sample rate.
func NewFileSource(path string, sampleRate int) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file %s: %w", path, err)
	}

	samples, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio file %s: %w", path, err)
	}

	if rate != sampleRate {
		return nil, fmt.Errorf("audio file %s has sample rate %d Hz, stream expects %d Hz", path, rate, sampleRate)
	}

	return &FileSource{samples: samples}, nil
}

// NewFileSourceFromSamples wraps already-decoded PCM. Used by tests and
// by callers that decode through other means.
func NewFileSourceFromSamples(samples []int16) *FileSource {
	return &FileSource{samples: samples}
}

// ReadFrame copies the next frame of samples. A final partial frame is
// zero-padded to full length; the frame after the last sample returns
// io.EOF.
func (s *FileSource) ReadFrame(frame []int16) error {
	if s.pos >= len(s.samples) {
		return io.EOF
	}

	n := copy(frame, s.samples[s.pos:])
	s.pos += n

	// Silence-filled tail, not a truncated frame.
	for i := n; i < len(frame); i++ {
		frame[i] = 0
	}
	return nil
}

// Restart rewinds the source to the beginning for loop playback.
func (s *FileSource) Restart() {
	s.pos = 0
}

// NumSamples returns the total decoded sample count.
func (s *FileSource) NumSamples() int {
	return len(s.samples)
}

// CaptureDevice is a blocking audio input. Read fills buf with up to
// len(buf) samples at the device's hardware rate and returns how many were
// delivered. It may return ErrOverrun alongside a short count when the
// device buffer overflowed.
type CaptureDevice interface {
	Read(buf []int16) (int, error)
}

// CaptureSource accumulates fixed-size device reads until a full frame is
// available. The blocking device read rate-limits the loop, so no explicit
// pacing is applied to capture-backed streams.
type CaptureSource struct {
	device  CaptureDevice
	logger  *slog.Logger
	readBuf []int16

	overruns uint64
}

// NewCaptureSource wraps a capture device. readSize is the per-read buffer
// size in samples, typically smaller than a frame.
func NewCaptureSource(device CaptureDevice, readSize int, logger *slog.Logger) *CaptureSource {
	return &CaptureSource{
		device:  device,
		logger:  logger,
		readBuf: make([]int16, readSize),
	}
}

// ReadFrame blocks until a full frame has been captured. Overruns are
// tolerated: lost samples are dropped and capture continues.
func (s *CaptureSource) ReadFrame(frame []int16) error {
	filled := 0
	for filled < len(frame) {
		want := len(frame) - filled
		if want > len(s.readBuf) {
			want = len(s.readBuf)
		}

		n, err := s.device.Read(s.readBuf[:want])
		if n > 0 {
			filled += copy(frame[filled:], s.readBuf[:n])
		}
		if n == 0 && err == nil {
			// A blocking device must deliver samples or fail; a zero-sample
			// success would spin this loop forever.
			return fmt.Errorf("capture device returned no samples")
		}

		switch {
		case err == nil:
		case errors.Is(err, ErrOverrun):
			s.overruns++
			s.logger.Warn("capture overrun, samples dropped",
				slog.Uint64("total_overruns", s.overruns),
			)
		default:
			return fmt.Errorf("capture device read failed: %w", err)
		}
	}
	return nil
}

// Overruns reports how many device overruns have been tolerated so far.
func (s *CaptureSource) Overruns() uint64 {
	return s.overruns
}

// ReaderDevice adapts an io.Reader of little-endian 16-bit PCM into a
// CaptureDevice. Piping `arecord -f S16_LE -r 16000 -c 1` into stdin
// gives a hardware-clocked live source without a native audio binding.
type ReaderDevice struct {
	r io.Reader

	// A pipe read can end mid-sample; the dangling low byte is held here
	// until the next read supplies its high byte.
	carry    byte
	hasCarry bool
}

// NewReaderDevice wraps a raw PCM byte stream.
func NewReaderDevice(r io.Reader) *ReaderDevice {
	return &ReaderDevice{r: r}
}

// Read fills buf with as many complete samples as one underlying read
// delivers. Sample alignment is preserved across reads even when the
// underlying stream delivers an odd byte count.
func (d *ReaderDevice) Read(buf []int16) (int, error) {
	raw := make([]byte, len(buf)*2)
	off := 0
	if d.hasCarry {
		raw[0] = d.carry
		d.hasCarry = false
		off = 1
	}

	n, err := io.ReadAtLeast(d.r, raw[off:], 2-off)
	if err != nil {
		return 0, err
	}
	n += off

	if n%2 != 0 {
		d.carry = raw[n-1]
		d.hasCarry = true
		n--
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(uint16(raw[i*2]) | uint16(raw[i*2+1])<<8)
	}
	return samples, nil
}
