package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/audio"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/packet"
)

// fakeSender records datagrams and can fail selected writes.
type fakeSender struct {
	sent   [][]byte
	failOn map[int]bool // write index -> fail
	writes int
	closed bool
}

func (f *fakeSender) Write(b []byte) (int, error) {
	idx := f.writes
	f.writes++
	if f.failOn[idx] {
		return 0, errors.New("network unreachable")
	}
	data := make([]byte, len(b))
	copy(data, b)
	f.sent = append(f.sent, data)
	return len(b), nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func testStreamer(t *testing.T, conn *fakeSender, frameSamples int) *Streamer {
	t.Helper()
	p, err := NewPacketizer(frameSamples)
	if err != nil {
		t.Fatalf("NewPacketizer failed: %v", err)
	}
	pacer := &Pacer{
		interval: time.Millisecond,
		now:      time.Now,
		sleep:    func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
	pacer.Reset()
	return newStreamerForTest(conn, p, pacer, slog.Default())
}

func TestStreamFileSendsAllFrames(t *testing.T) {
	conn := &fakeSender{}
	s := testStreamer(t, conn, 4)

	src := audio.NewFileSourceFromSamples(make([]int16, 10)) // 3 frames, last padded
	if err := s.StreamFile(context.Background(), src, false); err != nil {
		t.Fatalf("StreamFile failed: %v", err)
	}

	if len(conn.sent) != 3 {
		t.Fatalf("sent %d datagrams, want 3", len(conn.sent))
	}
	for i, data := range conn.sent {
		pkt, err := packet.Parse(data)
		if err != nil {
			t.Fatalf("datagram %d unparseable: %v", i, err)
		}
		if pkt.Seq != uint32(i) {
			t.Errorf("datagram %d seq = %d, want %d", i, pkt.Seq, i)
		}
	}

	frames, sendErrs := s.Statistics()
	if frames != 3 || sendErrs != 0 {
		t.Errorf("statistics = (%d, %d), want (3, 0)", frames, sendErrs)
	}
}

func TestStreamFileSendFailureIsNonFatal(t *testing.T) {
	conn := &fakeSender{failOn: map[int]bool{1: true}}
	s := testStreamer(t, conn, 4)

	src := audio.NewFileSourceFromSamples(make([]int16, 12))
	if err := s.StreamFile(context.Background(), src, false); err != nil {
		t.Fatalf("StreamFile failed on a transient send error: %v", err)
	}

	if len(conn.sent) != 2 {
		t.Errorf("delivered %d datagrams, want 2 (one skipped)", len(conn.sent))
	}
	frames, sendErrs := s.Statistics()
	if frames != 2 || sendErrs != 1 {
		t.Errorf("statistics = (%d, %d), want (2, 1)", frames, sendErrs)
	}
}

func TestStreamFileLoopResetsCodecState(t *testing.T) {
	conn := &fakeSender{}
	s := testStreamer(t, conn, 4)

	ctx, cancel := context.WithCancel(context.Background())
	sent := 0
	s.pacer.sleep = func(ctx context.Context, d time.Duration) error {
		sent++
		if sent >= 4 { // two full passes over a 2-frame file
			cancel()
		}
		return ctx.Err()
	}

	src := audio.NewFileSourceFromSamples([]int16{4000, -4000, 4000, -4000, 4000, -4000, 4000, -4000})
	err := s.StreamFile(ctx, src, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamFile = %v, want context.Canceled", err)
	}

	if len(conn.sent) < 3 {
		t.Fatalf("sent %d datagrams, want at least 3", len(conn.sent))
	}

	first, err := packet.Parse(conn.sent[0])
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	loopFirst, err := packet.Parse(conn.sent[2])
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// The loop restart resets the encoder, so the first packet of the
	// second pass carries the same zero header state as the very first.
	if loopFirst.State != first.State {
		t.Errorf("loop-start state %+v, want %+v", loopFirst.State, first.State)
	}
	// But the sequence number keeps counting.
	if loopFirst.Seq != 2 {
		t.Errorf("loop-start seq = %d, want 2", loopFirst.Seq)
	}
}

func TestStreamCaptureStopsOnCancel(t *testing.T) {
	conn := &fakeSender{}
	s := testStreamer(t, conn, 4)

	ctx, cancel := context.WithCancel(context.Background())

	device := &cancellingDevice{cancel: cancel, after: 3}
	src := audio.NewCaptureSource(device, 4, slog.Default())

	err := s.StreamCapture(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamCapture = %v, want context.Canceled", err)
	}
	if len(conn.sent) == 0 {
		t.Error("no datagrams sent before cancellation")
	}
}

// cancellingDevice produces silence and cancels the context after a set
// number of reads, then errors to unblock the capture loop.
type cancellingDevice struct {
	cancel context.CancelFunc
	after  int
	reads  int
}

func (d *cancellingDevice) Read(buf []int16) (int, error) {
	d.reads++
	if d.reads > d.after {
		d.cancel()
		return 0, io.ErrClosedPipe
	}
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}
