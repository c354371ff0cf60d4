package stream

import (
	"context"
	"time"
)

// DefaultPacingFactor biases packet emission slightly fast so downstream
// jitter is absorbed by the device's buffer instead of causing underruns.
const DefaultPacingFactor = 0.85

// Pacer schedules packet emission against an absolute wall-clock anchor.
// The target time for frame n is start + n*frameDuration*factor, computed
// from the anchor rather than accumulated sleep by sleep, so scheduler
// error never compounds into drift.
type Pacer struct {
	interval   time.Duration // frame duration scaled by the pacing factor
	start      time.Time
	framesSent int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer for the given frame duration and pacing
// factor. A factor of zero falls back to DefaultPacingFactor.
func NewPacer(frameDuration time.Duration, factor float64) *Pacer {
	if factor <= 0 {
		factor = DefaultPacingFactor
	}
	p := &Pacer{
		interval: time.Duration(float64(frameDuration) * factor),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	p.Reset()
	return p
}

// Reset re-anchors pacing to the current time. Called at stream start and
// on every loop restart so drift cannot compound across loops.
func (p *Pacer) Reset() {
	p.start = p.now()
	p.framesSent = 0
}

// Wait records one sent frame and sleeps until that frame's target time.
// If the sender is already behind schedule it returns immediately;
// falling behind is tolerated, never compensated by dropping frames.
// Returns the context's error if cancelled mid-sleep.
func (p *Pacer) Wait(ctx context.Context) error {
	p.framesSent++
	target := p.start.Add(time.Duration(p.framesSent) * p.interval)

	if d := target.Sub(p.now()); d > 0 {
		return p.sleep(ctx, d)
	}
	return ctx.Err()
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
