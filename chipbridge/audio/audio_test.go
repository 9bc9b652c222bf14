package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rampProvider struct {
	next    int16
	toggled []int
}

func (r *rampProvider) GetSamples(count int) []int16 {
	out := make([]int16, count)
	for i := range out {
		out[i] = r.next
		r.next++
	}
	return out
}

func (r *rampProvider) ToggleChannel(ch int) { r.toggled = append(r.toggled, ch) }
func (r *rampProvider) SoloChannel(int)      {}
func (r *rampProvider) ChannelStatus() []bool {
	return nil
}

func TestStreamSilenceWithoutProvider(t *testing.T) {
	var s Stream
	p := []byte{1, 2, 3, 4, 5}

	n, err := s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "reads whole samples only")
	assert.Equal(t, []byte{0, 0, 0, 0, 5}, p)
}

func TestStreamEncodesLittleEndian(t *testing.T) {
	var s Stream
	s.SetProvider(&rampProvider{next: -1})

	p := make([]byte, 6)
	n, err := s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00, 0x00, 0x01, 0x00}, p)

	s.SetProvider(nil)
	_, err = s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 6), p)
}

func TestWavWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewWavWriter(f, 22050)
	require.NoError(t, w.Write([]int16{100, -200, 300}, []int16{-100, 200, -300}))
	require.NoError(t, w.Write([]int16{7}, []int16{8, 9}))
	assert.Equal(t, 4, w.Frames())
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	dec := wav.NewDecoder(in)
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint32(22050), dec.SampleRate)
	assert.Equal(t, uint16(16), dec.BitDepth)

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, []int{100, -100, -200, 200, 300, -300, 7, 8}, buf.Data)
}
