// Package hwtest provides an in-memory hardware driver for tests and for
// running the engine without physical chips.
package hwtest

import (
	"errors"
	"sync"

	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/hw"
)

// Write is one register write received by a fake chip.
type Write struct {
	Addr uint32
	Data uint32
}

// Chip is a fake physical chip recording everything it receives.
type Chip struct {
	mu sync.Mutex

	Info hw.ChipInfo

	FailInit  bool
	FailWrite bool

	writes     []Write
	regs       map[uint32]uint32
	initCount  int
	resetCount int
}

// NewChip creates a fake chip of type t with optional compatible types.
func NewChip(t chip.Type, compatible ...chip.Type) *Chip {
	c := &Chip{
		Info: hw.ChipInfo{Name: t.String(), Type: t, Clock: 3579545},
		regs: make(map[uint32]uint32),
	}
	copy(c.Info.Compatible[:], compatible)
	return c
}

func (c *Chip) SoundChipType() chip.Type   { return c.Info.Type }
func (c *Chip) SoundChipInfo() hw.ChipInfo { return c.Info }

func (c *Chip) Init() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailInit {
		return false
	}
	c.initCount++
	clear(c.regs)
	return true
}

func (c *Chip) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetCount++
	clear(c.regs)
	return true
}

func (c *Chip) SetRegister(addr, data uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailWrite {
		return false
	}
	c.writes = append(c.writes, Write{Addr: addr, Data: data})
	c.regs[addr] = data
	return true
}

// Writes returns a copy of the received writes.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Write(nil), c.writes...)
}

// Register returns the last value written to addr.
func (c *Chip) Register(addr uint32) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.regs[addr]
	return v, ok
}

// ClearWrites forgets the recorded writes.
func (c *Chip) ClearWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes = nil
}

func (c *Chip) InitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initCount
}

func (c *Chip) ResetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetCount
}

// Interface is a fake interface board. A nil entry in Chips makes the
// driver return no chip for that slot.
type Interface struct {
	Chips []*Chip
}

func (i *Interface) SoundChipCount() int { return len(i.Chips) }

func (i *Interface) SoundChip(j int) hw.SoundChip {
	if j < 0 || j >= len(i.Chips) || i.Chips[j] == nil {
		return nil
	}
	return i.Chips[j]
}

// Driver is a fake driver: it is its own Loader, Library and
// InterfaceManager. The Fail* knobs inject failures at each step.
type Driver struct {
	mu sync.Mutex

	Interfaces []*Interface

	FailOpen       bool
	FailClose      bool
	FailEntryPoint bool
	FailInitialize bool
	FailRelease    bool
	FailReset      bool
	NilInterface   int // index returning nil, -1 for none

	opened      bool
	initialized bool
	opens       int
	releases    int
	resets      int
}

// NewDriver builds a driver with one interface board per argument.
func NewDriver(boards ...[]*Chip) *Driver {
	d := &Driver{NilInterface: -1}
	for _, chips := range boards {
		d.Interfaces = append(d.Interfaces, &Interface{Chips: chips})
	}
	return d
}

var (
	errOpen  = errors.New("hwtest: open failed")
	errClose = errors.New("hwtest: close failed")
	errEntry = errors.New("hwtest: entry point missing")
)

func (d *Driver) Open() (hw.Library, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailOpen {
		return nil, errOpen
	}
	d.opened = true
	d.opens++
	return d, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opened = false
	if d.FailClose {
		return errClose
	}
	return nil
}

func (d *Driver) InterfaceManager() (hw.InterfaceManager, error) {
	if d.FailEntryPoint {
		return nil, errEntry
	}
	return d, nil
}

func (d *Driver) InitializeInstance() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailInitialize {
		return false
	}
	d.initialized = true
	return true
}

func (d *Driver) ReleaseInstance() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.initialized = false
	d.releases++
	return !d.FailRelease
}

func (d *Driver) ReleaseAllSoundChips() bool {
	return !d.FailRelease
}

func (d *Driver) Reset() bool {
	d.mu.Lock()
	d.resets++
	fail := d.FailReset
	d.mu.Unlock()

	for _, sif := range d.Interfaces {
		if sif == nil {
			continue
		}
		for _, c := range sif.Chips {
			if c != nil {
				c.Reset()
			}
		}
	}
	return !fail
}

func (d *Driver) InterfaceCount() int { return len(d.Interfaces) }

func (d *Driver) Interface(i int) hw.SoundInterface {
	if i == d.NilInterface || i < 0 || i >= len(d.Interfaces) || d.Interfaces[i] == nil {
		return nil
	}
	return d.Interfaces[i]
}

// Opened reports whether the library is currently open.
func (d *Driver) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Initialized reports whether the driver instance is live.
func (d *Driver) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Resets counts driver-wide Reset calls.
func (d *Driver) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// Releases counts ReleaseInstance calls.
func (d *Driver) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

var (
	_ hw.Loader           = (*Driver)(nil)
	_ hw.Library          = (*Driver)(nil)
	_ hw.InterfaceManager = (*Driver)(nil)
	_ hw.SoundChip        = (*Chip)(nil)
)
