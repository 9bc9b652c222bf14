package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// WavWriter encodes stereo 16-bit frames into a WAV stream.
type WavWriter struct {
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	frames int
}

// NewWavWriter starts a WAV stream on w. The header is finalized by Close.
func NewWavWriter(w io.WriteSeeker, sampleRate int) *WavWriter {
	return &WavWriter{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, 2, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}
}

// Write appends min(len(l), len(r)) frames.
func (w *WavWriter) Write(l, r []int16) error {
	n := min(len(l), len(r))
	if cap(w.buf.Data) < 2*n {
		w.buf.Data = make([]int, 2*n)
	}
	w.buf.Data = w.buf.Data[:2*n]
	for i := 0; i < n; i++ {
		w.buf.Data[2*i] = int(l[i])
		w.buf.Data[2*i+1] = int(r[i])
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write wav frames: %w", err)
	}
	w.frames += n
	return nil
}

// Frames returns the number of frames written so far.
func (w *WavWriter) Frames() int { return w.frames }

func (w *WavWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}
