package dispatch

import (
	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/macro"
)

// Dispatch is implemented by every chip backend. A dispatch owns the state of
// one virtual chip: its channels, its pending register writes and its
// register pool.
//
// Dispatch and Tick are called from the control path, Acquire from the audio
// path. Implementations serialize the two so that register writes reach the
// chip in the order they were queued.
type Dispatch interface {
	// Init allocates channel state, applies flags and returns the number of
	// channels actually instantiated.
	Init(host Host, channels, sampleRateHint int, flags uint32) int
	// Quit releases anything Init allocated.
	Quit()

	// Dispatch handles one sequencer command. Malformed commands are ignored
	// and return 0.
	Dispatch(c Command) int
	// Tick advances one sequencer tick: macros, frequencies, key edges.
	Tick(sysTick bool)
	// Acquire renders length frames starting at start into both buffers.
	Acquire(bufL, bufR []int16, start, length int)

	MuteChannel(ch int, mute bool)
	// ForceIns re-applies the current instrument on every channel.
	ForceIns()
	// Reset silences all channels and clears the register pool.
	Reset()
	NotifyInsChange(ins int)
	NotifyInsDeletion(ins *instrument.Instrument)

	RegisterPool() []byte
	RegisterPoolSize() int
	ChanState(ch int) any
	ChanMacroInt(ch int) *macro.Int
	OscBuffer(ch int) *OscBuffer

	// Poke writes directly to a register, behind anything already queued.
	Poke(addr uint32, val uint16)
	PokeList(writes []RegWrite)

	Rate() int
	Channels() int
	ChipType() chip.Type
	SetFlags(flags uint32)

	ToggleRegisterDump(enable bool)
	// RegisterDump returns and clears the writes recorded since the dump
	// was enabled.
	RegisterDump() []RegWrite
}

// Host is the engine context a dispatch lives in.
type Host interface {
	// Instrument returns the instrument at index, or nil.
	Instrument(index int) *instrument.Instrument
	// Hardware returns the bridge to physical chips. It may be nil.
	Hardware() HardwareBridge
}

// HardwareBridge mirrors register writes to a physical chip attached to a
// dispatch. Both calls are cheap no-ops when nothing is attached.
type HardwareBridge interface {
	HasAttached(d Dispatch) bool
	Write(d Dispatch, addr, data uint32) bool
}
