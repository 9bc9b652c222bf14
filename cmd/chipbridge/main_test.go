package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/config"
	"github.com/valerio/go-chipbridge/chipbridge/hw"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// writeMIDI writes a half second note at 120 bpm.
func writeMIDI(t *testing.T, dir string) string {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)

	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 127))
	tr.Add(96, midi.NoteOff(0, 60))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	path := filepath.Join(dir, "song.mid")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func decodeWav(t *testing.T, path string) (frames int, rate uint32) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return len(buf.Data) / 2, dec.SampleRate
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	midiPath := writeMIDI(t, dir)

	err := newApp().Run([]string{"chipbridge", "--sample-rate", "8000", "--tick-rate", "50",
		"render", "--tail", "0.25", midiPath})
	require.NoError(t, err)

	// 26 ticks of 160 frames until the note-off at 0.5s, then the tail
	frames, rate := decodeWav(t, filepath.Join(dir, "song.wav"))
	assert.Equal(t, uint32(8000), rate)
	assert.Equal(t, 26*160+2000, frames)
}

func TestRenderNeedsInput(t *testing.T) {
	err := newApp().Run([]string{"chipbridge", "render"})
	assert.ErrorContains(t, err, "no MIDI file")
}

func TestScriptCommand(t *testing.T) {
	dir := t.TempDir()
	lua := filepath.Join(dir, "tune.lua")
	require.NoError(t, os.WriteFile(lua, []byte("ins(0, 0, 0)\nnote_on(0, 0, 60)\ntick(3)\n"), 0o644))
	out := filepath.Join(dir, "tune.wav")

	err := newApp().Run([]string{"chipbridge", "--sample-rate", "8000", "--tick-rate", "50",
		"script", "--out", out, lua})
	require.NoError(t, err)

	frames, _ := decodeWav(t, out)
	assert.Equal(t, 3*160, frames)
}

func TestScriptErrorsSurface(t *testing.T) {
	dir := t.TempDir()
	lua := filepath.Join(dir, "bad.lua")
	require.NoError(t, os.WriteFile(lua, []byte("note_on(7, 0, 60)\n"), 0o644))

	err := newApp().Run([]string{"chipbridge", "script", lua})
	assert.ErrorContains(t, err, "no system 7")
}

func TestProbeNeedsLibrary(t *testing.T) {
	err := newApp().Run([]string{"chipbridge", "probe"})
	assert.ErrorContains(t, err, "probe needs --library")
}

func TestBuildEngineFromConfig(t *testing.T) {
	cfg, err := config.Parse(bytes.NewBufferString(`
sample_rate: 22050
systems:
  - name: lead
    chip: opll
  - name: kit
    chip: opll-drums
  - chip: vrc7
instruments:
  - name: piano
  - name: organ
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	e := buildEngine(cfg, slog.Default())
	defer e.Close()

	assert.Equal(t, 22050, e.SampleRate())
	assert.Equal(t, 2, e.Instruments())

	systems := e.Systems()
	require.Len(t, systems, 3)
	assert.Equal(t, "lead", systems[0].Name)
	assert.Equal(t, 9, systems[0].Channels)
	assert.Equal(t, 11, systems[1].Channels)
	assert.Equal(t, "vrc7", systems[2].Name)
	assert.Equal(t, 6, systems[2].Channels)
	assert.Equal(t, chip.YM2413, systems[0].Type)
}

func TestBuildEngineDefaultInstrument(t *testing.T) {
	e := buildEngine(config.Default(), slog.Default())
	defer e.Close()
	assert.Equal(t, 1, e.Instruments())
	assert.NotNil(t, e.Instrument(0))
}

func TestPrintChips(t *testing.T) {
	var buf bytes.Buffer
	printChips(&buf, nil)
	assert.Equal(t, "no chips found\n", buf.String())

	buf.Reset()
	printChips(&buf, []hw.ChipStatus{{
		Interface:  0,
		Slot:       1,
		Name:       "OPLL board",
		Type:       chip.YM2413,
		Compatible: []chip.Type{chip.YM2413},
		Clock:      3579545,
	}})
	assert.Contains(t, buf.String(), "0:1  OPLL board")
	assert.Contains(t, buf.String(), "3579545 Hz")
	assert.Contains(t, buf.String(), "compatible: YM2413")
}

func TestDefaultWavPath(t *testing.T) {
	assert.Equal(t, "music/song.wav", defaultWavPath("music/song.mid"))
	assert.Equal(t, "tune.wav", defaultWavPath("tune"))
}
