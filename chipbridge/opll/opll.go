// Package opll is the dispatch backend for the YM2413 family (OPLL, VRC7,
// YMF281, YM2423). It turns sequencer commands into register writes, queues
// them, and either feeds them to a software core or mirrors them to a
// physical chip attached through the hardware bridge.
package opll

import (
	"log/slog"
	"math"
	"sync"

	"github.com/valerio/go-chipbridge/chipbridge/bit"
	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/fmcore"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/macro"
)

const (
	maxChannels     = 11
	melodicChannels = 9
	vrc7Channels    = 6
	firstDrum       = 6

	regPoolSize = 256

	// frames to wait after a value write before the next queued write
	writeDelay = 1

	noCustomPatch = math.MinInt
)

// Flag bits accepted by Init and SetFlags.
const (
	FlagClockMask     = 0x0F
	FlagPatchSetMask  = 0xF0
	FlagPatchSetShift = 4
	FlagProperDrums   = 1 << 8
)

// HardwareMode selects what Acquire renders while a physical chip is
// attached.
type HardwareMode int

const (
	// HardwarePassthrough sends writes to the chip and renders silence.
	HardwarePassthrough HardwareMode = iota
	// HardwareParallel sends writes to the chip and keeps emulating.
	HardwareParallel
)

// Channel is the per-channel state of the backend.
type Channel struct {
	State instrument.FM
	Std   macro.Int

	FreqH, FreqL uint8

	Freq      int
	BaseFreq  int
	Pitch     int
	Pitch2    int
	Note      int
	Ins       int
	FixedFreq int // raw block<<9|fnum, 0 when unused

	Active      bool
	InsChanged  bool
	FreqChanged bool
	KeyOn       bool
	KeyOff      bool
	PortaPause  bool
	InPorta     bool

	Vol    int
	OutVol int
	Pan    uint8
}

func newChannel() Channel {
	return Channel{
		Ins:        -1,
		Vol:        15,
		OutVol:     15,
		Pan:        3,
		InsChanged: true,
	}
}

// Platform is one OPLL. It implements dispatch.Dispatch.
type Platform struct {
	mu sync.Mutex

	host   dispatch.Host
	logger *slog.Logger

	core       Core
	customCore bool
	voiceOut   [fmcore.Voices]int32

	chans    [maxChannels]Channel
	muted    [maxChannels]bool
	osc      [maxChannels]*dispatch.OscBuffer
	channels int

	writes  dispatch.WriteQueue
	delay   int
	regPool [regPoolSize]byte
	// value each register holds once the queue drains, -1 when unknown
	pending [regPoolSize]int16

	lastCustomMemory int
	drumState        uint8
	drumVol          [5]uint8
	drums            bool

	properDrums    bool
	properDrumsSys bool
	vrc7           bool
	vrc7Sys        bool
	patchSet       fmcore.PatchSet
	clock          uint32
	rate           int

	hwMode     HardwareMode
	onHardware bool

	dumping bool
	dump    []dispatch.RegWrite
}

type Option func(*Platform)

// WithVRC7 restricts the chip to six melodic channels with the VRC7 ROM.
func WithVRC7(on bool) Option { return func(p *Platform) { p.vrc7Sys = on } }

// WithProperDrums exposes the rhythm section as five extra channels.
func WithProperDrums(on bool) Option { return func(p *Platform) { p.properDrumsSys = on } }

// WithCore replaces the built-in software core.
func WithCore(c Core) Option {
	return func(p *Platform) {
		p.core = c
		p.customCore = c != nil
	}
}

func WithLogger(l *slog.Logger) Option { return func(p *Platform) { p.logger = l } }

// WithHardwareMode selects rendering behaviour while a chip is attached.
func WithHardwareMode(m HardwareMode) Option { return func(p *Platform) { p.hwMode = m } }

// New creates an uninitialized platform; call Init before use.
func New(opts ...Option) *Platform {
	p := &Platform{
		logger:           slog.Default(),
		clock:            ClockNTSC,
		rate:             44100,
		lastCustomMemory: noCustomPatch,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.chans {
		p.chans[i] = newChannel()
	}
	p.forgetPending()
	return p
}

// Init binds the platform to its host, applies flags and resets the chip.
// sampleRateHint is the output rate Acquire renders at. The channel count
// follows the mode: 6 for VRC7, 11 with proper drums, 9 otherwise.
func (p *Platform) Init(host dispatch.Host, channels, sampleRateHint int, flags uint32) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.host = host
	if sampleRateHint > 0 {
		p.rate = sampleRateHint
	}
	p.applyFlagsLocked(flags)

	for i := range p.osc {
		p.osc[i] = dispatch.NewOscBuffer(p.rate)
	}
	clear(p.muted[:])

	if channels > 0 && channels != p.channels {
		p.logger.Debug("OPLL channel count fixed by mode", "requested", channels, "channels", p.channels)
	}

	p.resetLocked()
	return p.channels
}

func (p *Platform) applyFlagsLocked(flags uint32) {
	switch flags & FlagClockMask {
	case 1:
		p.clock = ClockPAL
	case 2:
		p.clock = Clock4MHz
	case 3:
		p.clock = ClockHalfNTSC
	default:
		p.clock = ClockNTSC
	}

	p.patchSet = fmcore.PatchSet((flags & FlagPatchSetMask) >> FlagPatchSetShift)
	if p.patchSet > fmcore.PatchVRC7 {
		p.patchSet = fmcore.PatchYM2413
	}
	if p.vrc7Sys {
		p.patchSet = fmcore.PatchVRC7
	}
	p.vrc7 = p.patchSet == fmcore.PatchVRC7
	p.properDrums = !p.vrc7 && (p.properDrumsSys || flags&FlagProperDrums != 0)

	switch {
	case p.vrc7:
		p.channels = vrc7Channels
	case p.properDrums:
		p.channels = maxChannels
	default:
		p.channels = melodicChannels
	}

	if !p.customCore {
		p.core = fmcore.New(p.clock, p.rate, p.patchSet)
	} else if ps, ok := p.core.(patchSetter); ok {
		ps.SetPatchSet(p.patchSet)
	}
}

// SetFlags reconfigures clock, patch set and drum mode, then resets.
func (p *Platform) SetFlags(flags uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.applyFlagsLocked(flags)
	p.resetLocked()
}

// Quit drops the host and pending writes.
func (p *Platform) Quit() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writes.Clear()
	p.forgetPending()
	p.host = nil
}

// Reset silences every channel, forgets the register pool and rewrites the
// chip's initial state.
func (p *Platform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
}

func (p *Platform) resetLocked() {
	p.writes.Clear()
	p.forgetPending()
	p.delay = 0
	p.regPool = [regPoolSize]byte{}
	if p.core != nil {
		p.core.Reset()
	}

	for i := range p.chans {
		p.chans[i] = newChannel()
	}
	for _, o := range p.osc {
		if o != nil {
			o.Clear()
		}
	}

	p.lastCustomMemory = noCustomPatch
	p.drumState = 0
	p.drumVol = [5]uint8{}
	p.drums = false

	if p.properDrums {
		p.immWrite(0x0E, 0x20)
	}
}

// ForceIns rewrites the chip from channel state. Every channel that holds
// an instrument or is sounding gets its patch and volume queued at once,
// released channels included, and its frequency rewritten on the next
// tick. Nothing is treated as already written until the queue drains.
func (p *Platform) ForceIns() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.forgetPending()
	p.lastCustomMemory = noCustomPatch

	for i := 0; i < p.channels; i++ {
		ch := &p.chans[i]
		if ch.Ins < 0 && !ch.Active {
			ch.InsChanged = true
			continue
		}
		ins := p.instrumentAt(ch.Ins)
		// a silent channel must not flip legacy rhythm mode
		if !ch.Active && p.legacyDrumSlot(i) && ins.IsDrums() != p.drums {
			ch.InsChanged = true
			continue
		}
		p.applyInstrument(i, ins)
		ch.FreqChanged = true
	}

	if p.properDrums || p.drums {
		p.immWrite(0x0E, 0x20|p.drumState)
		p.writeDrumVolumes()
	}
}

func (p *Platform) MuteChannel(ch int, mute bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch < 0 || ch >= p.channels {
		return
	}
	p.muted[ch] = mute
	p.writeVolume(ch)
}

// NotifyInsChange marks channels using instrument ins for reapplication.
func (p *Platform) NotifyInsChange(ins int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.chans {
		if p.chans[i].Ins == ins {
			p.chans[i].InsChanged = true
		}
	}
}

// NotifyInsDeletion stops macros still reading from a deleted instrument.
func (p *Platform) NotifyInsDeletion(ins *instrument.Instrument) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.chans {
		ch := &p.chans[i]
		if ins != nil && ch.Std.Instrument() == ins {
			ch.Std.Init(nil)
			ch.InsChanged = true
		}
	}
}

// RegisterPool returns a copy of the last value written to each register.
func (p *Platform) RegisterPool() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, regPoolSize)
	copy(out, p.regPool[:])
	return out
}

func (p *Platform) RegisterPoolSize() int { return regPoolSize }

// ChanState returns a snapshot of channel ch as *Channel, or nil.
func (p *Platform) ChanState(ch int) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch < 0 || ch >= p.channels {
		return nil
	}
	c := p.chans[ch]
	return &c
}

// ChanMacroInt returns the live macro state of channel ch. The pointer is
// handed out without the platform lock; read it only between ticks.
func (p *Platform) ChanMacroInt(ch int) *macro.Int {
	if ch < 0 || ch >= maxChannels {
		return nil
	}
	return &p.chans[ch].Std
}

// OscBuffer returns channel ch's live scope buffer without taking the
// platform lock. Acquire keeps writing to it, so readers may see a
// partially updated window.
func (p *Platform) OscBuffer(ch int) *dispatch.OscBuffer {
	if ch < 0 || ch >= maxChannels {
		return nil
	}
	return p.osc[ch]
}

// Poke queues a raw register write behind anything already pending. Raw
// writes are always sent, even when the register already holds val.
func (p *Platform) Poke(addr uint32, val uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.forceWrite(uint16(addr), uint8(val))
}

func (p *Platform) PokeList(writes []dispatch.RegWrite) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, w := range writes {
		p.forceWrite(uint16(w.Addr), uint8(w.Val))
	}
}

func (p *Platform) Rate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

func (p *Platform) Channels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channels
}

// Clock returns the emulated chip clock in Hz.
func (p *Platform) Clock() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock
}

// ChipType is the physical chip this backend asks the hardware manager
// for. VRC7 is served by a plain YM2413, whose ROM presets 1-15 differ
// from the VRC7 set; only the user patch sounds the same.
func (p *Platform) ChipType() chip.Type {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.patchSet {
	case fmcore.PatchYMF281:
		return chip.YMF281
	case fmcore.PatchYM2423:
		return chip.YM2423
	}
	return chip.YM2413
}

// ToggleRegisterDump starts or stops recording every write that reaches a
// chip.
func (p *Platform) ToggleRegisterDump(enable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dumping = enable
	if !enable {
		p.dump = nil
	}
}

func (p *Platform) RegisterDump() []dispatch.RegWrite {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.dump
	p.dump = nil
	return out
}

// KeyOffAffectsArp reports whether a key-off stops the arpeggio macro.
func (p *Platform) KeyOffAffectsArp(ch int) bool { return false }

// KeyOffAffectsPorta reports whether a key-off cancels portamento.
func (p *Platform) KeyOffAffectsPorta(ch int) bool { return false }

// PortaFloor is the lowest note portamento may slide to.
func (p *Platform) PortaFloor(ch int) int { return 0 }

// Drums reports whether rhythm mode is on, in either drum layout.
func (p *Platform) Drums() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.properDrums || p.drums
}

// PendingWrites returns the number of queued register writes.
func (p *Platform) PendingWrites() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes.Len()
}

// immWrite queues a write unless the register will already hold val.
func (p *Platform) immWrite(addr uint16, val uint8) {
	if p.pending[addr&0xFF] == int16(val) {
		return
	}
	p.forceWrite(addr, val)
}

// forceWrite queues a write unconditionally. Key edges use it so a
// retrigger always reaches the chip.
func (p *Platform) forceWrite(addr uint16, val uint8) {
	p.pending[addr&0xFF] = int16(val)
	p.writes.Push(addr, val)
}

func (p *Platform) forgetPending() {
	for i := range p.pending {
		p.pending[i] = -1
	}
}

func (p *Platform) instrumentAt(index int) *instrument.Instrument {
	if p.host != nil {
		if ins := p.host.Instrument(index); ins != nil {
			return ins
		}
	}
	return defaultInstrument
}

var defaultInstrument = instrument.New("default")

func (p *Platform) attenuation(ch int) uint8 {
	if p.muted[ch] {
		return 15
	}
	return uint8(15 - bit.Clamp(p.chans[ch].OutVol, 0, 15))
}

// drumChannel reports whether ch plays a rhythm voice in the current mode.
// legacyDrumSlot reports whether ch is one of the channels rhythm mode
// takes over when a drum kit instrument is set on it.
func (p *Platform) legacyDrumSlot(ch int) bool {
	return !p.properDrums && !p.vrc7 && ch >= firstDrum && ch < melodicChannels
}

func (p *Platform) drumChannel(ch int) bool {
	if ch < firstDrum {
		return false
	}
	return p.properDrums || (p.drums && ch < melodicChannels)
}

func (p *Platform) writeVolume(ch int) {
	att := p.attenuation(ch)
	switch {
	case p.properDrums && ch >= firstDrum:
		p.drumVol[ch-firstDrum] = att
		p.writeDrumVolumes()
	case p.drums && ch >= firstDrum && ch < melodicChannels:
		switch ch {
		case 6:
			p.drumVol[0] = att
		case 7:
			p.drumVol[1], p.drumVol[4] = att, att
		case 8:
			p.drumVol[2], p.drumVol[3] = att, att
		}
		p.writeDrumVolumes()
	case ch < melodicChannels:
		preset := uint8(p.chans[ch].State.Preset) & 0x0F
		p.immWrite(uint16(0x30+ch), preset<<4|att)
	}
}

func (p *Platform) writeDrumVolumes() {
	p.immWrite(0x36, p.drumVol[0])
	p.immWrite(0x37, p.drumVol[4]<<4|p.drumVol[1])
	p.immWrite(0x38, p.drumVol[2]<<4|p.drumVol[3])
}

var _ dispatch.Dispatch = (*Platform)(nil)
