// Package engine is the top-level context: it owns the hardware manager,
// the instrument table and the chip systems, and drives them from a tick
// clock while rendering audio.
package engine

import (
	"log/slog"
	"sync"

	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/hw"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
)

const (
	DefaultSampleRate = 44100
	DefaultTickRate   = 60
)

// Commander receives sequencer commands.
type Commander interface {
	Command(sys int, c dispatch.Command) int
}

// Source feeds commands to the engine once per tick, before the systems
// tick. Advance returns false once the source has nothing left to play.
type Source interface {
	Advance(cmd Commander) bool
}

type system struct {
	d            dispatch.Dispatch
	name         string
	flags        uint32
	wantHardware bool
	channels     int
	muted        []bool

	bufL, bufR []int16
}

// SystemInfo describes one system for tooling.
type SystemInfo struct {
	Index    int
	Name     string
	Type     chip.Type
	Channels int
	Attached bool
}

// Engine implements dispatch.Host for every system it owns.
type Engine struct {
	mu sync.Mutex

	manager *hw.Manager
	systems []*system

	// instruments has its own lock: systems look instruments up while the
	// engine lock is held by Render.
	insMu       sync.RWMutex
	instruments []*instrument.Instrument

	sampleRate int
	tickRate   int

	source        Source
	sourceDone    bool
	samplesToTick float64
	ticks         uint64

	started bool
	logger  *slog.Logger
}

type Option func(*Engine)

func WithSampleRate(rate int) Option { return func(e *Engine) { e.sampleRate = rate } }
func WithTickRate(rate int) Option   { return func(e *Engine) { e.tickRate = rate } }
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine. loader may be nil, in which case every system
// runs emulated.
func New(loader hw.Loader, opts ...Option) *Engine {
	e := &Engine{
		sampleRate: DefaultSampleRate,
		tickRate:   DefaultTickRate,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sampleRate <= 0 {
		e.sampleRate = DefaultSampleRate
	}
	if e.tickRate <= 0 {
		e.tickRate = DefaultTickRate
	}
	e.manager = hw.NewManager(loader, hw.WithLogger(e.logger))
	return e
}

func (e *Engine) SampleRate() int { return e.sampleRate }
func (e *Engine) TickRate() int   { return e.tickRate }

// Manager exposes the hardware manager for inspection.
func (e *Engine) Manager() *hw.Manager { return e.manager }

// Hardware implements dispatch.Host.
func (e *Engine) Hardware() dispatch.HardwareBridge { return e.manager }

// Instrument implements dispatch.Host.
func (e *Engine) Instrument(index int) *instrument.Instrument {
	e.insMu.RLock()
	defer e.insMu.RUnlock()

	if index < 0 || index >= len(e.instruments) {
		return nil
	}
	return e.instruments[index]
}

// AddInstrument appends ins and returns its index.
func (e *Engine) AddInstrument(ins *instrument.Instrument) int {
	e.insMu.Lock()
	defer e.insMu.Unlock()

	e.instruments = append(e.instruments, ins)
	return len(e.instruments) - 1
}

// SetInstrument replaces the instrument at index and tells every system.
func (e *Engine) SetInstrument(index int, ins *instrument.Instrument) bool {
	e.insMu.Lock()
	if index < 0 || index >= len(e.instruments) {
		e.insMu.Unlock()
		return false
	}
	e.instruments[index] = ins
	e.insMu.Unlock()

	systems := e.systemsCopy()

	for _, s := range systems {
		s.d.NotifyInsChange(index)
	}
	return true
}

// RemoveInstrument empties slot index. Indices of other instruments do not
// move.
func (e *Engine) RemoveInstrument(index int) bool {
	e.insMu.Lock()
	if index < 0 || index >= len(e.instruments) || e.instruments[index] == nil {
		e.insMu.Unlock()
		return false
	}
	old := e.instruments[index]
	e.instruments[index] = nil
	e.insMu.Unlock()

	systems := e.systemsCopy()

	for _, s := range systems {
		s.d.NotifyInsDeletion(old)
		s.d.NotifyInsChange(index)
	}
	return true
}

// Instruments returns the number of instrument slots.
func (e *Engine) Instruments() int {
	e.insMu.RLock()
	defer e.insMu.RUnlock()
	return len(e.instruments)
}

func (e *Engine) systemsCopy() []*system {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*system(nil), e.systems...)
}

// AddSystem initializes d inside this engine and returns its index. When
// wantHardware is set, Start tries to attach a physical chip to it.
func (e *Engine) AddSystem(name string, d dispatch.Dispatch, flags uint32, wantHardware bool) int {
	channels := d.Init(e, 0, e.sampleRate, flags)

	e.mu.Lock()
	defer e.mu.Unlock()

	s := &system{
		d:            d,
		name:         name,
		flags:        flags,
		wantHardware: wantHardware,
		channels:     channels,
		muted:        make([]bool, channels),
	}
	e.systems = append(e.systems, s)

	e.logger.Debug("Added system", "name", name, "type", d.ChipType(), "channels", channels)

	if e.started && wantHardware {
		e.attachLocked(s)
	}
	return len(e.systems) - 1
}

// Systems describes every system.
func (e *Engine) Systems() []SystemInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]SystemInfo, 0, len(e.systems))
	for i, s := range e.systems {
		out = append(out, SystemInfo{
			Index:    i,
			Name:     s.name,
			Type:     s.d.ChipType(),
			Channels: s.channels,
			Attached: e.manager.HasAttached(s.d),
		})
	}
	return out
}

// System returns the dispatch at index, or nil.
func (e *Engine) System(index int) dispatch.Dispatch {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.systems) {
		return nil
	}
	return e.systems[index].d
}

// Start loads the hardware driver, enumerates chips and attaches every
// system that asked for hardware. Any failure leaves the affected systems
// emulated.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return
	}
	e.started = true

	if !e.manager.LoadDriver() {
		e.logger.Info("Running without hardware: emulating all systems")
		return
	}
	if !e.manager.InitializeChips() {
		e.logger.Warn("Hardware chip enumeration failed: emulating all systems")
		return
	}

	for _, s := range e.systems {
		if s.wantHardware {
			e.attachLocked(s)
		}
	}
}

func (e *Engine) attachLocked(s *system) bool {
	t := s.d.ChipType()
	if !e.manager.Attach(t, s.d) {
		e.logger.Warn("No physical chip for system, emulating", "system", s.name, "type", t)
		return false
	}
	e.logger.Info("System attached to hardware", "system", s.name, "type", t)
	return true
}

// Stop detaches every system, deinitializes the chips and unloads the
// driver.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	e.started = false

	for _, s := range e.systems {
		e.manager.Detach(s.d)
	}
	e.manager.DeinitializeChips()
	e.manager.ReleaseDriver()
}

// Close stops the engine and quits every system.
func (e *Engine) Close() {
	e.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.systems {
		s.d.Quit()
	}
	e.systems = nil
}

// AttachHardware attaches a physical chip to system sys.
func (e *Engine) AttachHardware(sys int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sys < 0 || sys >= len(e.systems) {
		return false
	}
	return e.attachLocked(e.systems[sys])
}

// DetachHardware returns the chip held by system sys to the pool.
func (e *Engine) DetachHardware(sys int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sys < 0 || sys >= len(e.systems) {
		return false
	}
	return e.manager.Detach(e.systems[sys].d)
}

// Command sends c to system sys. Out of range systems are ignored.
func (e *Engine) Command(sys int, c dispatch.Command) int {
	e.mu.Lock()
	if sys < 0 || sys >= len(e.systems) {
		e.mu.Unlock()
		return 0
	}
	d := e.systems[sys].d
	e.mu.Unlock()

	return d.Dispatch(c)
}

// SetSource installs the command source driven by the tick clock.
func (e *Engine) SetSource(src Source) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.source = src
	e.sourceDone = src == nil
}

// Done reports whether the current source has finished.
func (e *Engine) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sourceDone
}

// Ticks returns the number of ticks run so far.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}
