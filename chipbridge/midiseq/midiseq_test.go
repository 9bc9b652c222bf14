package midiseq

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type recorder struct {
	sent []sentCommand
}

type sentCommand struct {
	sys int
	dispatch.Command
}

func (r *recorder) Command(sys int, c dispatch.Command) int {
	r.sent = append(r.sent, sentCommand{sys, c})
	return 1
}

func (r *recorder) of(t dispatch.CmdType) []dispatch.Command {
	var out []dispatch.Command
	for _, c := range r.sent {
		if c.Cmd == t {
			out = append(out, c.Command)
		}
	}
	return out
}

// buildSMF writes a one track file at 96 ticks per quarter note.
func buildSMF(t *testing.T, fill func(tr *smf.Track)) *bytes.Buffer {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)

	var tr smf.Track
	fill(&tr)
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func run(seq *Sequence, cmd *recorder, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		if !seq.Advance(cmd) {
			return i + 1
		}
	}
	return maxTicks
}

func TestTimingFollowsTempo(t *testing.T) {
	// quarter note at 120 bpm is 0.5s, then 60 bpm makes the next one 1s
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, smf.MetaTempo(120))
		tr.Add(0, midi.NoteOn(0, 60, 127))
		tr.Add(96, midi.NoteOff(0, 60))
		tr.Add(0, smf.MetaTempo(60))
		tr.Add(96, midi.NoteOn(0, 62, 127))
	})

	seq, err := Load(buf, WithTickRate(10))
	require.NoError(t, err)
	assert.Equal(t, 3, seq.Events())
	assert.InDelta(t, 1.5, seq.Duration(), 1e-9)

	cmd := &recorder{}
	ticks := run(seq, cmd, 100)
	assert.Equal(t, 16, ticks, "last event at 1.5s is played on tick 15")

	ons := cmd.of(dispatch.CmdNoteOn)
	require.Len(t, ons, 2)
	assert.Equal(t, 60, ons[0].Value)
	assert.Equal(t, 62, ons[1].Value)
	assert.Len(t, cmd.of(dispatch.CmdNoteOffEnv), 1)
}

func TestNoteOnSequence(t *testing.T) {
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.ProgramChange(0, 2))
		tr.Add(0, midi.NoteOn(0, 69, 127))
	})
	seq, err := Load(buf, WithSystem(3), WithInstruments(4))
	require.NoError(t, err)

	cmd := &recorder{}
	seq.Advance(cmd)

	require.Len(t, cmd.sent, 4)
	for _, c := range cmd.sent {
		assert.Equal(t, 3, c.sys)
		assert.Equal(t, 0, c.Chan)
	}
	assert.Equal(t, dispatch.NewCommand(dispatch.CmdInstrument, 0, 2), cmd.sent[0].Command)
	assert.Equal(t, dispatch.NewCommand(dispatch.CmdPitch, 0, 0), cmd.sent[1].Command)
	assert.Equal(t, dispatch.NewCommand(dispatch.CmdVolume, 0, 15), cmd.sent[2].Command)
	assert.Equal(t, dispatch.NewCommand(dispatch.CmdNoteOn, 0, 69), cmd.sent[3].Command)
}

func TestProgramMapping(t *testing.T) {
	seq := &Sequence{instruments: 3, programs: map[uint8]int{40: 1}}

	seq.program[0] = 2
	assert.Equal(t, 2, seq.instrumentFor(0))
	seq.program[0] = 7
	assert.Equal(t, 0, seq.instrumentFor(0), "unknown programs fall back to instrument 0")
	seq.program[0] = 40
	assert.Equal(t, 1, seq.instrumentFor(0))
}

func TestVoiceAllocation(t *testing.T) {
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(0, midi.NoteOn(0, 64, 100))
		tr.Add(0, midi.NoteOn(1, 67, 100))
	})
	seq, err := Load(buf, WithChannels(2))
	require.NoError(t, err)

	cmd := &recorder{}
	seq.Advance(cmd)

	ons := cmd.of(dispatch.CmdNoteOn)
	require.Len(t, ons, 3)
	assert.Equal(t, 0, ons[0].Chan)
	assert.Equal(t, 1, ons[1].Chan)
	assert.Equal(t, 0, ons[2].Chan, "oldest voice is stolen")

	offs := cmd.of(dispatch.CmdNoteOff)
	require.Len(t, offs, 1)
	assert.Equal(t, 0, offs[0].Chan)
}

func TestAllocatorReusesOldestReleased(t *testing.T) {
	a := newAllocator(3)

	v0, _ := a.alloc(0, 60)
	v1, _ := a.alloc(0, 62)
	v2, _ := a.alloc(0, 64)
	assert.Equal(t, []int{0, 1, 2}, []int{v0, v1, v2})

	assert.Equal(t, 1, a.release(0, 62))
	assert.Equal(t, 0, a.release(0, 60))
	assert.Equal(t, -1, a.release(0, 60))

	v, stolen := a.alloc(1, 70)
	assert.Equal(t, 1, v, "released first, reused first")
	assert.False(t, stolen)
	assert.Equal(t, 2, a.activeCount())
	assert.Equal(t, []int{1}, a.playing(1))

	same, _ := a.alloc(1, 70)
	assert.Equal(t, 1, same, "retriggering a sounding note keeps its voice")

	empty := newAllocator(0)
	v, _ = empty.alloc(0, 60)
	assert.Equal(t, -1, v)
}

func TestVolumeAndControllers(t *testing.T) {
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.ControlChange(0, ccVolume, 64))
		tr.Add(0, midi.NoteOn(0, 60, 127))
		tr.Add(0, midi.NoteOn(0, 64, 127))
		tr.Add(10, midi.ControlChange(0, ccAllNotesOff, 0))
	})
	seq, err := Load(buf)
	require.NoError(t, err)

	cmd := &recorder{}
	run(seq, cmd, 10)

	vols := cmd.of(dispatch.CmdVolume)
	require.Len(t, vols, 2)
	assert.Equal(t, 127*64*15/(127*127), vols[0].Value)
	assert.Len(t, cmd.of(dispatch.CmdNoteOffEnv), 2)
	assert.Zero(t, seq.alloc.activeCount())
}

func TestPitchBend(t *testing.T) {
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 69, 100))
		tr.Add(10, midi.Pitchbend(0, 8191))
		tr.Add(10, midi.Pitchbend(0, -8192))
	})
	seq, err := Load(buf)
	require.NoError(t, err)

	cmd := &recorder{}
	run(seq, cmd, 10)

	bends := cmd.of(dispatch.CmdPitch)
	require.Len(t, bends, 3)
	assert.Zero(t, bends[0].Value, "note on resets the bend")
	assert.Positive(t, bends[1].Value)
	assert.Negative(t, bends[2].Value)
}

func TestDrumChannel(t *testing.T) {
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(drumMIDIChannel, 36, 127))
		tr.Add(0, midi.NoteOn(drumMIDIChannel, 42, 127))
		tr.Add(0, midi.NoteOn(drumMIDIChannel, 99, 127))
		tr.Add(10, midi.NoteOff(drumMIDIChannel, 36))
	})
	seq, err := Load(buf, WithDrums(true))
	require.NoError(t, err)

	cmd := &recorder{}
	run(seq, cmd, 10)

	ons := cmd.of(dispatch.CmdNoteOn)
	require.Len(t, ons, 2, "unmapped percussion keys are dropped")
	assert.Equal(t, 6, ons[0].Chan)
	assert.Equal(t, 10, ons[1].Chan)

	offs := cmd.of(dispatch.CmdNoteOff)
	require.Len(t, offs, 1)
	assert.Equal(t, 6, offs[0].Chan)
}

func TestRewind(t *testing.T) {
	buf := buildSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
	})
	seq, err := Load(buf)
	require.NoError(t, err)

	cmd := &recorder{}
	assert.False(t, seq.Advance(cmd))

	seq.Rewind(cmd)
	assert.Len(t, cmd.of(dispatch.CmdNoteOff), 1)
	assert.Zero(t, seq.alloc.activeCount())

	seq.Advance(cmd)
	assert.Len(t, cmd.of(dispatch.CmdNoteOn), 2)
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not a midi file")))
	assert.Error(t, err)

	_, err = LoadFile("/nonexistent/song.mid")
	assert.Error(t, err)
}
