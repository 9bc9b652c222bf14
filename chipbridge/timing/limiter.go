// Package timing paces the engine in wall-clock time when no audio device
// is pulling samples, for example when every system runs on hardware.
package timing

import "time"

// Limiter controls the tick rate of a live session.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for offline render).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// DefaultRate is the NTSC field rate most chip music is sequenced against.
const DefaultRate = 60

// FrameDuration returns the duration of one frame at rate frames per
// second. Non-positive rates fall back to DefaultRate.
func FrameDuration(rate float64) time.Duration {
	if rate <= 0 {
		rate = DefaultRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// FramesFor returns how many frames of sampleRate audio one frame at rate
// covers, rounded down.
func FramesFor(sampleRate int, rate float64) int {
	if rate <= 0 {
		rate = DefaultRate
	}
	return int(float64(sampleRate) / rate)
}
