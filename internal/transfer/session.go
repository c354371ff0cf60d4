package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/metrics"
)

// Terminal outcomes of a transfer attempt. Aborts are final: already-sent
// chunks are not rolled back device-side, and a failed transfer is never
// retried automatically.
var (
	ErrNoCapacityReply   = errors.New("device did not reply to capacity request")
	ErrInsufficientSpace = errors.New("file does not fit in device storage")
	ErrAckTimeout        = errors.New("chunk acknowledgment timed out")
	ErrCancelled         = errors.New("transfer cancelled")
)

// State identifies where the transfer state machine currently is.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateSendingChunk
	StateAwaitingAck
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateSendingChunk:
		return "sending_chunk"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Transport is the messaging channel a session drives. *Client implements
// it; tests substitute an in-process fake.
type Transport interface {
	PublishRequest(payload []byte) error
	PublishChunk(payload []byte) error
	Replies() <-chan CapacityReply
	Acks() <-chan int
}

// Config contains the transfer protocol parameters.
type Config struct {
	ChunkSize       int           // bytes per chunk
	AckTimeout      time.Duration // per-chunk acknowledgment deadline
	CapacityTimeout time.Duration // bounded wait for the capacity reply
}

// Session is one transfer attempt: negotiate capacity, then send every
// chunk in order, each gated on its matching acknowledgment. A Session is
// single-use.
type Session struct {
	transport Transport
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	state   State
	lastAck int
}

// NewSession creates a session over the given transport.
func NewSession(transport Transport, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Session {
	return &Session{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		state:     StateIdle,
		lastAck:   -1,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Upload runs the full transfer: capacity negotiation, START, every chunk
// with its acknowledgment, then END. Any abort leaves the device with
// whatever chunks it already wrote; cleanup is the device's concern.
func (s *Session) Upload(ctx context.Context, data []byte) error {
	started := time.Now()
	if s.metrics != nil {
		s.metrics.TransfersStarted.Inc()
	}

	reply, err := s.negotiate(ctx)
	if err != nil {
		return s.abort(err)
	}

	if uint64(len(data)) > reply.Available() {
		s.logger.Error("file does not fit on device",
			slog.Int("file_size", len(data)),
			slog.Uint64("free_bytes", reply.FreeBytes),
			slog.Uint64("resident_bytes", reply.ResidentBytes),
		)
		return s.abort(ErrInsufficientSpace)
	}

	s.logger.Info("capacity check passed",
		slog.Int("file_size", len(data)),
		slog.Uint64("free_bytes", reply.FreeBytes),
		slog.Uint64("resident_bytes", reply.ResidentBytes),
	)

	if err := s.sendChunks(ctx, data); err != nil {
		return s.abort(err)
	}

	if err := s.transport.PublishChunk([]byte(EndMarker)); err != nil {
		return s.abort(fmt.Errorf("failed to publish end marker: %w", err))
	}

	s.state = StateComplete
	if s.metrics != nil {
		s.metrics.TransfersCompleted.Inc()
		s.metrics.TransferDuration.Observe(time.Since(started).Seconds())
	}
	s.logger.Info("transfer complete",
		slog.Int("file_size", len(data)),
		slog.Int("chunks", ChunkCount(len(data), s.cfg.ChunkSize)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// negotiate publishes the free-space request and waits, bounded, for the
// reply.
func (s *Session) negotiate(ctx context.Context) (CapacityReply, error) {
	s.state = StateNegotiating

	if err := s.transport.PublishRequest([]byte(RequestFreeSpace)); err != nil {
		return CapacityReply{}, fmt.Errorf("failed to publish capacity request: %w", err)
	}
	s.logger.Info("capacity request published",
		slog.Duration("reply_timeout", s.cfg.CapacityTimeout),
	)

	timer := time.NewTimer(s.cfg.CapacityTimeout)
	defer timer.Stop()

	select {
	case reply := <-s.transport.Replies():
		return reply, nil
	case <-timer.C:
		return CapacityReply{}, ErrNoCapacityReply
	case <-ctx.Done():
		return CapacityReply{}, ErrCancelled
	}
}

// sendChunks publishes START followed by every chunk in order. Chunk i+1
// is never published before the acknowledgment for chunk i arrives; a
// missing acknowledgment aborts the whole transfer.
func (s *Session) sendChunks(ctx context.Context, data []byte) error {
	total := ChunkCount(len(data), s.cfg.ChunkSize)

	if err := s.transport.PublishChunk(FormatStart(len(data))); err != nil {
		return fmt.Errorf("failed to publish start message: %w", err)
	}
	s.logger.Info("transfer started",
		slog.Int("file_size", len(data)),
		slog.Int("total_chunks", total),
		slog.Int("chunk_size", s.cfg.ChunkSize),
	)

	for i := 0; i < total; i++ {
		start := i * s.cfg.ChunkSize
		end := start + s.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}

		s.state = StateSendingChunk
		chunk := data[start:end]
		if err := s.transport.PublishChunk(FormatChunk(i, total, chunk)); err != nil {
			return fmt.Errorf("failed to publish chunk %d: %w", i, err)
		}
		if s.metrics != nil {
			s.metrics.ChunksSent.Inc()
			s.metrics.ChunkBytes.Add(float64(len(chunk)))
		}

		if err := s.awaitAck(ctx, i); err != nil {
			return err
		}
		s.logger.Debug("chunk acknowledged",
			slog.Int("chunk", i+1),
			slog.Int("total", total),
		)
	}
	return nil
}

// awaitAck blocks until the acknowledgment for exactly chunk index
// arrives. Acknowledgments for any other index are stale or reordered
// and are ignored; they must not advance the state machine.
func (s *Session) awaitAck(ctx context.Context, index int) error {
	s.state = StateAwaitingAck
	waitStart := time.Now()

	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()

	for {
		select {
		case got := <-s.transport.Acks():
			if got != index {
				s.logger.Warn("ignoring out-of-order acknowledgment",
					slog.Int("got", got),
					slog.Int("awaiting", index),
				)
				continue
			}
			s.lastAck = got
			if s.metrics != nil {
				s.metrics.AckWaitTime.Observe(time.Since(waitStart).Seconds())
			}
			return nil
		case <-timer.C:
			s.logger.Error("no acknowledgment within deadline",
				slog.Int("chunk", index),
				slog.Duration("timeout", s.cfg.AckTimeout),
			)
			return ErrAckTimeout
		case <-ctx.Done():
			return ErrCancelled
		}
	}
}

// abort marks the session failed and records the reason.
func (s *Session) abort(cause error) error {
	s.state = StateAborted
	if s.metrics != nil {
		s.metrics.TransfersAborted.WithLabelValues(abortReason(cause)).Inc()
	}
	s.logger.Error("transfer aborted",
		slog.String("reason", cause.Error()),
		slog.Int("last_acknowledged_chunk", s.lastAck),
	)
	return cause
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, ErrNoCapacityReply):
		return "no_reply"
	case errors.Is(err, ErrInsufficientSpace):
		return "insufficient_space"
	case errors.Is(err, ErrAckTimeout):
		return "ack_timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "publish_error"
	}
}
