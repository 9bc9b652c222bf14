// Package midiseq plays a Standard MIDI File through one chip system. Notes
// are spread over the system's channels by a small voice allocator, and
// the file is stepped once per engine tick.
package midiseq

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	defaultBPM       = 120.0
	defaultChannels  = 9
	drumMIDIChannel  = 9
	bendRange        = 2 // semitones either way
	ccVolume         = 7
	ccAllNotesOff    = 123
	maxChipVolume    = 15
	maxMIDIValue     = 127
	pitchBendCenter  = 8192
	firstDrumChannel = 6
)

type event struct {
	at  float64 // seconds from start
	msg midi.Message
}

// Sequence is an engine.Source built from a MIDI file.
type Sequence struct {
	events   []event
	duration float64

	tickRate int
	ticks    uint64
	pos      int

	sys         int
	clock       uint32
	drums       bool
	instruments int
	programs    map[uint8]int

	alloc    *allocator
	program  [16]uint8
	volume   [16]uint8
	drumLast [5]uint8

	logger *slog.Logger
}

var _ engine.Source = (*Sequence)(nil)

type Option func(*Sequence)

// WithSystem selects the engine system receiving commands.
func WithSystem(sys int) Option { return func(s *Sequence) { s.sys = sys } }

// WithChannels sets how many chip channels the allocator may use for
// melodic voices.
func WithChannels(n int) Option { return func(s *Sequence) { s.alloc = newAllocator(n) } }

// WithTickRate must match the engine tick rate.
func WithTickRate(rate int) Option { return func(s *Sequence) { s.tickRate = rate } }

// WithClock sets the chip clock used to size pitch bends.
func WithClock(clock uint32) Option { return func(s *Sequence) { s.clock = clock } }

// WithDrums routes MIDI channel 10 to the five rhythm channels (6-10). The
// system must run with proper drums.
func WithDrums(on bool) Option { return func(s *Sequence) { s.drums = on } }

// WithInstruments sets how many instruments the engine holds. Programs at
// or above the count fall back to instrument 0.
func WithInstruments(n int) Option { return func(s *Sequence) { s.instruments = n } }

// WithProgramMap maps MIDI programs to instrument indices explicitly.
func WithProgramMap(m map[uint8]int) Option { return func(s *Sequence) { s.programs = m } }

func WithLogger(l *slog.Logger) Option { return func(s *Sequence) { s.logger = l } }

// LoadFile reads a MIDI file from disk.
func LoadFile(path string, opts ...Option) (*Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open midi file: %w", err)
	}
	defer f.Close()

	seq, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return seq, nil
}

// Load parses a Standard MIDI File. Only metric time formats are accepted.
func Load(r io.Reader, opts ...Option) (*Sequence, error) {
	s := &Sequence{
		tickRate:    engine.DefaultTickRate,
		clock:       opll.ClockNTSC,
		instruments: 1,
		alloc:       newAllocator(defaultChannels),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tickRate <= 0 {
		s.tickRate = engine.DefaultTickRate
	}
	for i := range s.volume {
		s.volume[i] = maxMIDIValue
	}

	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse midi: %w", err)
	}
	ticks, ok := file.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported midi time format %v", file.TimeFormat)
	}

	ppq := float64(ticks)
	if ppq == 0 {
		ppq = 960
	}
	s.events, s.duration = flatten(file.Tracks, ppq)
	s.logger.Debug("Loaded MIDI file",
		"tracks", len(file.Tracks),
		"events", len(s.events),
		"seconds", s.duration)
	return s, nil
}

type absEvent struct {
	tick  uint64
	track int
	msg   smf.Message
}

// flatten merges all tracks into one time ordered list in seconds,
// following tempo changes from any track.
func flatten(tracks []smf.Track, ppq float64) ([]event, float64) {
	var all []absEvent
	for ti, tr := range tracks {
		var abs uint64
		for _, ev := range tr {
			abs += uint64(ev.Delta)
			all = append(all, absEvent{tick: abs, track: ti, msg: ev.Message})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].tick < all[j].tick })

	var (
		out      []event
		lastTick uint64
		seconds  float64
		bpm      = defaultBPM
	)
	for _, ev := range all {
		seconds += float64(ev.tick-lastTick) * 60 / (bpm * ppq)
		lastTick = ev.tick

		var tempo float64
		if ev.msg.GetMetaTempo(&tempo) {
			if tempo > 0 {
				bpm = tempo
			}
			continue
		}
		if !ev.msg.IsPlayable() {
			continue
		}
		out = append(out, event{at: seconds, msg: midi.Message(ev.msg)})
	}
	return out, seconds
}

// Duration returns the length of the file in seconds.
func (s *Sequence) Duration() float64 { return s.duration }

// Events returns the number of playable events.
func (s *Sequence) Events() int { return len(s.events) }

// Advance plays every event due by the current tick. It returns false once
// the last event has been sent.
func (s *Sequence) Advance(cmd engine.Commander) bool {
	now := float64(s.ticks) / float64(s.tickRate)
	s.ticks++

	for s.pos < len(s.events) && s.events[s.pos].at <= now {
		s.handle(cmd, s.events[s.pos].msg)
		s.pos++
	}
	return s.pos < len(s.events)
}

// Rewind restarts playback, releasing every sounding voice.
func (s *Sequence) Rewind(cmd engine.Commander) {
	for i, v := range s.alloc.voices {
		if v.active {
			s.send(cmd, dispatch.CmdNoteOff, i)
		}
	}
	s.alloc = newAllocator(len(s.alloc.voices))
	s.ticks = 0
	s.pos = 0
}

func (s *Sequence) send(cmd engine.Commander, c dispatch.CmdType, ch int, values ...int) int {
	return cmd.Command(s.sys, dispatch.NewCommand(c, ch, values...))
}

func (s *Sequence) handle(cmd engine.Commander, msg midi.Message) {
	var ch, key, vel, cc, val, prog uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if s.drums && ch == drumMIDIChannel {
			s.drumOn(cmd, key, vel)
			return
		}
		s.noteOn(cmd, ch, key, vel)
	case msg.GetNoteEnd(&ch, &key):
		if s.drums && ch == drumMIDIChannel {
			s.drumOff(cmd, key)
			return
		}
		if i := s.alloc.release(ch, key); i >= 0 {
			s.send(cmd, dispatch.CmdNoteOffEnv, i)
		}
	case msg.GetProgramChange(&ch, &prog):
		s.program[ch] = prog
	case msg.GetControlChange(&ch, &cc, &val):
		s.control(cmd, ch, cc, val)
	case msg.GetPitchBend(&ch, &rel, &abs):
		for _, i := range s.alloc.playing(ch) {
			s.send(cmd, dispatch.CmdPitch, i, s.bendSteps(s.alloc.voices[i].note, rel))
		}
	}
}

func (s *Sequence) instrumentFor(ch uint8) int {
	prog := s.program[ch]
	if ins, ok := s.programs[prog]; ok {
		return ins
	}
	if int(prog) < s.instruments {
		return int(prog)
	}
	return 0
}

func (s *Sequence) chipVolume(ch, vel uint8) int {
	return int(vel) * int(s.volume[ch]) * maxChipVolume / (maxMIDIValue * maxMIDIValue)
}

func (s *Sequence) noteOn(cmd engine.Commander, ch, key, vel uint8) {
	i, stolen := s.alloc.alloc(ch, key)
	if i < 0 {
		return
	}
	if stolen {
		s.logger.Debug("Voice stolen", "voice", i, "midi_channel", ch, "note", key)
		s.send(cmd, dispatch.CmdNoteOff, i)
	}

	if ins := s.instrumentFor(ch); s.alloc.voices[i].ins != ins {
		s.send(cmd, dispatch.CmdInstrument, i, ins)
		s.alloc.voices[i].ins = ins
	}
	s.send(cmd, dispatch.CmdPitch, i, 0)
	s.send(cmd, dispatch.CmdVolume, i, s.chipVolume(ch, vel))
	s.send(cmd, dispatch.CmdNoteOn, i, int(key))
}

// drumSlot maps General MIDI percussion keys to the rhythm section:
// 0 BD, 1 SD, 2 TOM, 3 TOP, 4 HH.
func drumSlot(key uint8) int {
	switch key {
	case 35, 36:
		return 0
	case 37, 38, 39, 40:
		return 1
	case 41, 43, 45, 47, 48, 50:
		return 2
	case 49, 51, 52, 53, 55, 57, 59:
		return 3
	case 42, 44, 46:
		return 4
	}
	return -1
}

func (s *Sequence) drumOn(cmd engine.Commander, key, vel uint8) {
	slot := drumSlot(key)
	if slot < 0 {
		return
	}
	ch := firstDrumChannel + slot
	s.drumLast[slot] = key
	s.send(cmd, dispatch.CmdVolume, ch, s.chipVolume(drumMIDIChannel, vel))
	s.send(cmd, dispatch.CmdNoteOn, ch, int(key))
}

func (s *Sequence) drumOff(cmd engine.Commander, key uint8) {
	slot := drumSlot(key)
	if slot < 0 || s.drumLast[slot] != key {
		return
	}
	s.send(cmd, dispatch.CmdNoteOff, firstDrumChannel+slot)
}

func (s *Sequence) control(cmd engine.Commander, ch, cc, val uint8) {
	switch cc {
	case ccVolume:
		s.volume[ch] = val
	case ccAllNotesOff:
		for _, i := range s.alloc.playing(ch) {
			s.alloc.release(ch, s.alloc.voices[i].note)
			s.send(cmd, dispatch.CmdNoteOffEnv, i)
		}
	}
}

// bendSteps converts a relative pitch bend into F-number steps at note.
func (s *Sequence) bendSteps(note uint8, rel int16) int {
	base := opll.NoteToFreq(int(note), s.clock)
	step := opll.Octave(base)
	if step == 0 {
		return 0
	}
	semis := float64(rel) / pitchBendCenter * bendRange
	target := opll.NoteToFreq(int(note)+bendRange, s.clock)
	if semis < 0 {
		target = opll.NoteToFreq(int(note)-bendRange, s.clock)
		semis = -semis
	}
	delta := float64(target-base) * semis / bendRange
	return int(delta) / step
}
