package macro

import "github.com/valerio/go-chipbridge/chipbridge/instrument"

// State tracks the playback of a single macro.
type State struct {
	Val  int  // current value
	Had  bool // a new value was produced on the last Next
	Will bool // macro is running
	Mode int

	pos      int
	def      instrument.Macro
	released bool
}

func (s *State) init(m instrument.Macro) {
	*s = State{def: m, Mode: m.Mode}
	s.Will = m.Len() > 0
}

func (s *State) next() {
	s.Had = false
	if !s.Will {
		return
	}

	s.Val = s.def.Values[s.pos]
	s.Had = true
	s.pos++

	// hold at the release point until the note is released
	if !s.released && s.def.Release >= 0 && s.pos > s.def.Release {
		s.pos = s.def.Release
		return
	}

	if s.pos >= s.def.Len() {
		if s.def.Loop >= 0 && s.def.Loop < s.def.Len() && (s.def.Loop >= s.def.Release || s.released) {
			s.pos = s.def.Loop
		} else {
			s.Will = false
		}
	}
}

func (s *State) release() {
	if s.released {
		return
	}
	s.released = true
	if s.def.Release >= 0 && s.pos <= s.def.Release {
		s.pos = s.def.Release + 1
		if s.pos >= s.def.Len() {
			s.Will = false
		}
	}
}

// Int interprets the macros of one instrument for one channel.
type Int struct {
	Vol   State
	Arp   State
	Pitch State
	Wave  State

	ins *instrument.Instrument
}

// Init restarts every macro from the given instrument. A nil instrument
// stops all macros.
func (m *Int) Init(ins *instrument.Instrument) {
	m.ins = ins
	if ins == nil {
		*m = Int{}
		return
	}
	m.Vol.init(ins.Std.Vol)
	m.Arp.init(ins.Std.Arp)
	m.Pitch.init(ins.Std.Pitch)
	m.Wave.init(ins.Std.Wave)
}

// Next advances all macros by one tick.
func (m *Int) Next() {
	if m.ins == nil {
		return
	}
	m.Vol.next()
	m.Arp.next()
	m.Pitch.next()
	m.Wave.next()
}

// Release lets every macro continue past its release point.
func (m *Int) Release() {
	m.Vol.release()
	m.Arp.release()
	m.Pitch.release()
	m.Wave.release()
}

// Instrument returns the instrument the interpreter was initialized with.
func (m *Int) Instrument() *instrument.Instrument {
	return m.ins
}
