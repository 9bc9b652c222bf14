package engine

import (
	"math"

	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
)

// tickCommander routes source commands while Render holds the engine lock.
type tickCommander struct {
	e *Engine
}

func (t tickCommander) Command(sys int, c dispatch.Command) int {
	if sys < 0 || sys >= len(t.e.systems) {
		return 0
	}
	return t.e.systems[sys].d.Dispatch(c)
}

// Render fills l and r with mixed output from every system. The tick clock
// runs at TickRate: on every tick the source advances, then each system
// ticks.
func (e *Engine) Render(l, r []int16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	frames := min(len(l), len(r))
	clear(l[:frames])
	clear(r[:frames])

	samplesPerTick := float64(e.sampleRate) / float64(e.tickRate)

	pos := 0
	for pos < frames {
		if e.samplesToTick <= 0 {
			e.tickLocked()
			e.samplesToTick += samplesPerTick
		}

		n := min(frames-pos, int(math.Ceil(e.samplesToTick)))
		for _, s := range e.systems {
			s.acquire(n)
			mixInto(l[pos:pos+n], s.bufL[:n])
			mixInto(r[pos:pos+n], s.bufR[:n])
		}
		e.samplesToTick -= float64(n)
		pos += n
	}
}

func (e *Engine) tickLocked() {
	if e.source != nil {
		if !e.source.Advance(tickCommander{e}) {
			e.logger.Debug("Source finished", "ticks", e.ticks)
			e.source = nil
			e.sourceDone = true
		}
	}
	for _, s := range e.systems {
		s.d.Tick(true)
	}
	e.ticks++
}

func (s *system) acquire(n int) {
	if cap(s.bufL) < n {
		s.bufL = make([]int16, n)
		s.bufR = make([]int16, n)
	}
	s.bufL = s.bufL[:n]
	s.bufR = s.bufR[:n]
	clear(s.bufL)
	clear(s.bufR)
	s.d.Acquire(s.bufL, s.bufR, 0, n)
}

func mixInto(dst, src []int16) {
	for i, v := range src {
		sum := int32(dst[i]) + int32(v)
		if sum > math.MaxInt16 {
			sum = math.MaxInt16
		} else if sum < math.MinInt16 {
			sum = math.MinInt16
		}
		dst[i] = int16(sum)
	}
}

// GetSamples renders count interleaved stereo samples (count/2 frames).
func (e *Engine) GetSamples(count int) []int16 {
	frames := count / 2
	l := make([]int16, frames)
	r := make([]int16, frames)
	e.Render(l, r)

	out := make([]int16, count)
	for i := 0; i < frames; i++ {
		out[2*i] = l[i]
		out[2*i+1] = r[i]
	}
	return out
}

// locate maps a flat channel index across all systems to a system and a
// channel within it.
func (e *Engine) locate(channel int) (*system, int, bool) {
	if channel < 0 {
		return nil, 0, false
	}
	for _, s := range e.systems {
		if channel < s.channels {
			return s, channel, true
		}
		channel -= s.channels
	}
	return nil, 0, false
}

// MuteChannel mutes or unmutes a channel. Channels are numbered across all
// systems in the order they were added.
func (e *Engine) MuteChannel(channel int, muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ch, ok := e.locate(channel); ok {
		s.setMuted(ch, muted)
	}
}

// ToggleChannel toggles muting for a channel.
func (e *Engine) ToggleChannel(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ch, ok := e.locate(channel); ok {
		s.setMuted(ch, !s.muted[ch])
	}
}

// SoloChannel mutes every channel except the given one.
func (e *Engine) SoloChannel(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	flat := 0
	for _, s := range e.systems {
		for ch := 0; ch < s.channels; ch++ {
			s.setMuted(ch, flat != channel)
			flat++
		}
	}
}

func (e *Engine) UnmuteAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.systems {
		for ch := 0; ch < s.channels; ch++ {
			s.setMuted(ch, false)
		}
	}
}

// ChannelStatus reports, per flat channel index, whether the channel is
// audible.
func (e *Engine) ChannelStatus() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []bool
	for _, s := range e.systems {
		for _, m := range s.muted {
			out = append(out, !m)
		}
	}
	return out
}

func (s *system) setMuted(ch int, muted bool) {
	s.muted[ch] = muted
	s.d.MuteChannel(ch, muted)
}
