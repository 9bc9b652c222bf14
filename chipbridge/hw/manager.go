package hw

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
)

// Phase is the lifecycle state of the manager.
type Phase int

const (
	PhaseUnloaded  Phase = iota // no driver module
	PhaseLoaded                 // module open, chips not enumerated
	PhaseIdle                   // chips enumerated, none allocated
	PhaseAllocated              // at least one chip attached to a dispatch
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhaseLoaded:
		return "loaded"
	case PhaseIdle:
		return "idle"
	case PhaseAllocated:
		return "allocated"
	}
	return "unknown"
}

type physicalChip struct {
	handle   SoundChip
	info     ChipInfo
	declared chip.Type
	index    int
	iface    int
	slot     int
	inUse    bool
}

type connection struct {
	chip    *physicalChip
	serving chip.Type
}

// ChipStatus is a snapshot of one enumerated chip.
type ChipStatus struct {
	Index      int
	Interface  int
	Slot       int
	Name       string
	Type       chip.Type
	Compatible []chip.Type
	Clock      uint32
	Attached   bool
	Serving    chip.Type // requested type when attached
}

// Manager owns the pool of physical chips exposed by the hardware driver and
// hands each chip to at most one dispatch at a time.
//
// Every operation reports failure with a false result. Without a driver the
// manager stays usable: mutating calls fail and HasAttached is always false,
// so callers fall back to emulation.
//
// A single mutex guards the driver handles, the unused pool and the
// connections map together.
type Manager struct {
	mu sync.Mutex

	loader Loader
	lib    Library
	ifMan  InterfaceManager

	chips       []*physicalChip
	unused      map[chip.Type][]*physicalChip
	connections map[dispatch.Dispatch]connection

	logger *slog.Logger
}

type Option func(*Manager)

// WithLogger sets the logger used for driver and allocation events.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// NewManager creates a manager. loader may be nil, in which case the
// manager never reports attached chips.
func NewManager(loader Loader, opts ...Option) *Manager {
	m := &Manager{
		loader:      loader,
		unused:      make(map[chip.Type][]*physicalChip),
		connections: make(map[dispatch.Dispatch]connection),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadDriver opens the driver module, unloading a previous one first.
func (m *Manager) LoadDriver() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lib != nil {
		if !m.releaseLocked() {
			return false
		}
	}

	if m.loader == nil {
		m.logger.Debug("No hardware driver configured")
		return false
	}

	lib, err := m.loader.Open()
	if err != nil || lib == nil {
		m.logger.Warn("Failed to load hardware driver", "error", err)
		return false
	}

	m.lib = lib
	m.logger.Info("Hardware driver loaded")
	return true
}

// ReleaseDriver tears down any enumerated chips and closes the module. The
// handle is dropped even if closing fails; the result reports whether the
// close succeeded.
func (m *Manager) ReleaseDriver() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.releaseLocked()
}

func (m *Manager) releaseLocked() bool {
	if m.lib == nil {
		return true
	}

	m.deinitializeLocked()

	err := m.lib.Close()
	m.lib = nil
	if err != nil {
		m.logger.Warn("Failed to unload hardware driver", "error", err)
		return false
	}
	m.logger.Info("Hardware driver unloaded")
	return true
}

// InitializeChips asks the driver for its interface manager and enumerates
// every chip of every interface board into the unused pool. On any failure
// the partial enumeration is torn down.
func (m *Manager) InitializeChips() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lib == nil {
		return false
	}
	if m.ifMan != nil {
		m.deinitializeLocked()
	}

	ifMan, err := m.lib.InterfaceManager()
	if err != nil || ifMan == nil {
		m.logger.Warn("Hardware driver has no interface manager", "error", err)
		return false
	}
	m.ifMan = ifMan

	if !ifMan.InitializeInstance() {
		m.logger.Warn("Hardware driver failed to initialize")
		m.deinitializeLocked()
		return false
	}

	for i := 0; i < ifMan.InterfaceCount(); i++ {
		sif := ifMan.Interface(i)
		if sif == nil {
			m.logger.Warn("Hardware driver returned no interface", "interface", i)
			m.deinitializeLocked()
			return false
		}

		for j := 0; j < sif.SoundChipCount(); j++ {
			sc := sif.SoundChip(j)
			if sc == nil {
				m.logger.Warn("Hardware driver returned no chip", "interface", i, "slot", j)
				m.deinitializeLocked()
				return false
			}

			pc := &physicalChip{
				handle:   sc,
				info:     sc.SoundChipInfo(),
				declared: sc.SoundChipType(),
				index:    len(m.chips),
				iface:    i,
				slot:     j,
			}
			m.chips = append(m.chips, pc)
			m.unused[pc.declared] = append(m.unused[pc.declared], pc)

			m.logger.Info("Found sound chip",
				"interface", i,
				"slot", j,
				"type", pc.declared,
				"name", pc.info.Name,
				"clock", pc.info.Clock)
		}
	}

	m.resetLocked()
	return true
}

// DeinitializeChips resets every chip, forgets the pool and all
// connections and releases the driver instance. It is a no-op success when
// nothing is initialized.
func (m *Manager) DeinitializeChips() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.deinitializeLocked()
}

func (m *Manager) deinitializeLocked() bool {
	if m.ifMan == nil {
		return true
	}

	if len(m.connections) > 0 {
		m.logger.Debug("Force-detaching hardware connections", "count", len(m.connections))
	}
	m.resetLocked()

	m.chips = nil
	clear(m.unused)
	clear(m.connections)

	ok := m.ifMan.ReleaseAllSoundChips()
	if !m.ifMan.ReleaseInstance() {
		ok = false
	}
	m.ifMan = nil

	if !ok {
		m.logger.Warn("Hardware driver failed to release chips")
	}
	return ok
}

// Reset asks the driver to reset its interface boards, then returns every
// enumerated chip to a silent state. Ownership is unchanged.
func (m *Manager) Reset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ifMan == nil {
		return false
	}
	ok := m.ifMan.Reset()
	if !ok {
		m.logger.Warn("Hardware driver reset failed")
	}
	if !m.resetLocked() {
		ok = false
	}
	return ok
}

func (m *Manager) resetLocked() bool {
	ok := true
	for _, pc := range m.chips {
		if !pc.handle.Reset() {
			ok = false
		}
	}
	return ok
}

// Attach allocates a physical chip to d. A chip whose declared type equals
// requested is preferred; otherwise the first chip (in enumeration order)
// listing requested as compatible is used. Fails when d already holds a
// chip or nothing matches.
func (m *Manager) Attach(requested chip.Type, d dispatch.Dispatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ifMan == nil || d == nil {
		return false
	}
	if _, ok := m.connections[d]; ok {
		return false
	}

	pc := m.findExactLocked(requested)
	if pc == nil {
		pc = m.findCompatibleLocked(requested)
	}
	if pc == nil {
		m.logger.Debug("No physical chip available", "type", requested)
		return false
	}

	if !pc.handle.Init() {
		m.logger.Warn("Failed to initialize physical chip", "type", pc.declared, "index", pc.index)
		return false
	}

	m.takeLocked(pc)
	m.connections[d] = connection{chip: pc, serving: requested}

	m.logger.Debug("Attached physical chip",
		"requested", requested,
		"declared", pc.declared,
		"index", pc.index)
	return true
}

func (m *Manager) findExactLocked(t chip.Type) *physicalChip {
	if q := m.unused[t]; len(q) > 0 {
		return q[0]
	}
	return nil
}

func (m *Manager) findCompatibleLocked(t chip.Type) *physicalChip {
	for _, pc := range m.chips {
		if !pc.inUse && pc.info.CompatibleWith(t) {
			return pc
		}
	}
	return nil
}

func (m *Manager) takeLocked(pc *physicalChip) {
	q := m.unused[pc.declared]
	if i := slices.Index(q, pc); i >= 0 {
		m.unused[pc.declared] = slices.Delete(q, i, i+1)
	}
	pc.inUse = true
}

// Detach returns the chip held by d to the unused pool, re-initializing it
// first. The chip goes back under its declared type.
func (m *Manager) Detach(d dispatch.Dispatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[d]
	if !ok {
		return false
	}

	pc := conn.chip
	if !pc.handle.Init() {
		m.logger.Warn("Failed to re-initialize physical chip on detach", "index", pc.index)
	}

	delete(m.connections, d)
	pc.inUse = false
	m.unused[pc.declared] = append(m.unused[pc.declared], pc)

	m.logger.Debug("Detached physical chip", "declared", pc.declared, "index", pc.index)
	return true
}

// HasAttached reports whether d holds a physical chip.
func (m *Manager) HasAttached(d dispatch.Dispatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.connections[d]
	return ok
}

// Write forwards a register write to the chip held by d.
func (m *Manager) Write(d dispatch.Dispatch, addr, data uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[d]
	if !ok {
		return false
	}
	return conn.chip.handle.SetRegister(addr, data)
}

// AttachedType returns the declared type of the chip held by d.
func (m *Manager) AttachedType(d dispatch.Dispatch) (chip.Type, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[d]
	if !ok {
		return chip.None, false
	}
	return conn.chip.declared, true
}

// Available reports whether chips have been enumerated.
func (m *Manager) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ifMan != nil
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.lib == nil:
		return PhaseUnloaded
	case m.ifMan == nil:
		return PhaseLoaded
	case len(m.connections) > 0:
		return PhaseAllocated
	default:
		return PhaseIdle
	}
}

// Chips returns the enumerated chips in enumeration order.
func (m *Manager) Chips() []ChipStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	serving := make(map[*physicalChip]chip.Type, len(m.connections))
	for _, conn := range m.connections {
		serving[conn.chip] = conn.serving
	}

	out := make([]ChipStatus, 0, len(m.chips))
	for _, pc := range m.chips {
		st := ChipStatus{
			Index:     pc.index,
			Interface: pc.iface,
			Slot:      pc.slot,
			Name:      pc.info.Name,
			Type:      pc.declared,
			Clock:     pc.info.Clock,
			Attached:  pc.inUse,
			Serving:   serving[pc],
		}
		for _, c := range pc.info.Compatible {
			if c != chip.None {
				st.Compatible = append(st.Compatible, c)
			}
		}
		out = append(out, st)
	}
	return out
}

// UnusedCount returns the number of chips in the unused pool.
func (m *Manager) UnusedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, q := range m.unused {
		n += len(q)
	}
	return n
}

// Close deinitializes the chips and unloads the driver.
func (m *Manager) Close() bool {
	return m.ReleaseDriver()
}

var _ dispatch.HardwareBridge = (*Manager)(nil)
