package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/audio"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/metrics"
)

// Sender is the datagram send half of a connectionless socket. Satisfied
// by *net.UDPConn once dialed.
type Sender interface {
	Write(b []byte) (int, error)
	Close() error
}

// Config contains the streaming transport parameters.
type Config struct {
	Host          string
	Port          int
	SampleRate    int
	FrameDuration time.Duration
	PacingFactor  float64
}

// Streamer owns the connectionless socket and drives the packetize/pace/
// send loop. Sends are fire-and-forget: an individual failure is logged
// and skipped, never retried, because a late frame is useless to a
// real-time stream.
type Streamer struct {
	conn       Sender
	logger     *slog.Logger
	metrics    *metrics.Metrics
	packetizer *Packetizer
	pacer      *Pacer

	framesSent uint64
	sendErrors uint64
}

// NewStreamer dials the destination and prepares the streaming pipeline.
func NewStreamer(cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Streamer, error) {
	frameMs := int(cfg.FrameDuration / time.Millisecond)
	packetizer, err := NewPacketizer(FrameSamples(cfg.SampleRate, frameMs))
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket to %s: %w", addr, err)
	}

	logger.Info("streaming transport ready",
		slog.String("destination", addr),
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Duration("frame_duration", cfg.FrameDuration),
		slog.Float64("pacing_factor", cfg.PacingFactor),
	)

	return &Streamer{
		conn:       conn,
		logger:     logger,
		metrics:    m,
		packetizer: packetizer,
		pacer:      NewPacer(cfg.FrameDuration, cfg.PacingFactor),
	}, nil
}

// newStreamerForTest wires a Streamer onto an arbitrary Sender.
func newStreamerForTest(conn Sender, packetizer *Packetizer, pacer *Pacer, logger *slog.Logger) *Streamer {
	return &Streamer{conn: conn, logger: logger, packetizer: packetizer, pacer: pacer}
}

// StreamFile plays a decoded file source to the destination, paced in
// real time. With loop enabled the source restarts indefinitely until the
// context is cancelled; each restart resets the codec state and the
// pacing anchor so neither leaks across loop boundaries.
func (s *Streamer) StreamFile(ctx context.Context, src *audio.FileSource, loop bool) error {
	s.pacer.Reset()

	for {
		if err := ctx.Err(); err != nil {
			s.logStop()
			return err
		}

		pkt, err := s.packetizer.Next(src)
		if errors.Is(err, io.EOF) {
			if !loop {
				s.logStop()
				return nil
			}
			src.Restart()
			s.packetizer.ResetCodec()
			s.pacer.Reset()
			if s.metrics != nil {
				s.metrics.LoopRestarts.Inc()
			}
			s.logger.Debug("file source restarted for loop playback")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read frame: %w", err)
		}

		data, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal packet: %w", err)
		}
		s.send(pkt.Seq, data)

		if err := s.pacer.Wait(ctx); err != nil {
			s.logStop()
			return err
		}
	}
}

// StreamCapture streams from a blocking capture device until the context
// is cancelled. No explicit pacing is applied: the hardware-clocked
// capture read rate-limits the loop.
func (s *Streamer) StreamCapture(ctx context.Context, src *audio.CaptureSource) error {
	var seenOverruns uint64

	for {
		if err := ctx.Err(); err != nil {
			s.logStop()
			return err
		}

		pkt, err := s.packetizer.Next(src)
		if err != nil {
			if ctx.Err() != nil {
				s.logStop()
				return ctx.Err()
			}
			return fmt.Errorf("capture failed: %w", err)
		}

		if n := src.Overruns(); n > seenOverruns {
			if s.metrics != nil {
				s.metrics.CaptureOverruns.Add(float64(n - seenOverruns))
			}
			seenOverruns = n
		}

		data, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal packet: %w", err)
		}
		s.send(pkt.Seq, data)
	}
}

// send transmits one datagram best-effort.
func (s *Streamer) send(seq uint32, data []byte) {
	if _, err := s.conn.Write(data); err != nil {
		s.sendErrors++
		if s.metrics != nil {
			s.metrics.SendErrors.Inc()
		}
		s.logger.Warn("datagram send failed, frame skipped",
			slog.Uint64("sequence", uint64(seq)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.framesSent++
	if s.metrics != nil {
		s.metrics.FramesSent.Inc()
		s.metrics.FrameBytes.Add(float64(len(data)))
	}
}

// Close releases the socket.
func (s *Streamer) Close() error {
	return s.conn.Close()
}

// Statistics reports frames sent and send errors for the session.
func (s *Streamer) Statistics() (framesSent, sendErrors uint64) {
	return s.framesSent, s.sendErrors
}

func (s *Streamer) logStop() {
	s.logger.Info("streaming stopped",
		slog.Uint64("frames_sent", s.framesSent),
		slog.Uint64("send_errors", s.sendErrors),
	)
}
