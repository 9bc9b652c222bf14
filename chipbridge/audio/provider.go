// Package audio moves rendered frames out of the engine: to the sound card
// through oto, or to a WAV file.
package audio

import (
	"encoding/binary"
	"sync/atomic"
)

type Provider interface {
	// GetSamples retrieves count interleaved stereo samples for playback
	GetSamples(count int) []int16

	// Audio debugging controls

	ToggleChannel(channel int)
	SoloChannel(channel int)
	ChannelStatus() []bool
}

// Stream adapts a Provider to io.Reader as signed 16-bit little-endian
// stereo PCM. With no provider set it reads silence.
type Stream struct {
	provider atomic.Pointer[Provider]
}

func (s *Stream) SetProvider(p Provider) {
	if p == nil {
		s.provider.Store(nil)
		return
	}
	s.provider.Store(&p)
}

func (s *Stream) Read(p []byte) (int, error) {
	n := len(p) &^ 1
	pp := s.provider.Load()
	if pp == nil {
		clear(p[:n])
		return n, nil
	}

	samples := (*pp).GetSamples(n / 2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(v))
	}
	return n, nil
}
