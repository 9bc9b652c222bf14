package hw

import "github.com/valerio/go-chipbridge/chipbridge/chip"

// The interfaces below describe the external hardware-interface driver. The
// manager only consumes them; a driver is either a shared library opened by
// DynamicLoader or a test double.

// Loader locates and opens the driver module.
type Loader interface {
	Open() (Library, error)
}

// Library is an opened driver module.
type Library interface {
	// InterfaceManager resolves the driver entry point and returns its
	// interface manager.
	InterfaceManager() (InterfaceManager, error)
	Close() error
}

// InterfaceManager enumerates interface boards.
type InterfaceManager interface {
	InitializeInstance() bool
	ReleaseInstance() bool
	ReleaseAllSoundChips() bool
	Reset() bool

	InterfaceCount() int
	Interface(i int) SoundInterface
}

// SoundInterface is one interface board.
type SoundInterface interface {
	SoundChipCount() int
	SoundChip(j int) SoundChip
}

// SoundChip is one physical chip reachable through an interface board.
type SoundChip interface {
	SoundChipType() chip.Type
	SoundChipInfo() ChipInfo
	Init() bool
	Reset() bool
	SetRegister(addr, data uint32) bool
}

// ChipInfo describes a physical chip. Compatible lists up to two further
// chip types the chip can serve; unused slots are chip.None.
type ChipInfo struct {
	Name       string
	Type       chip.Type
	Compatible [2]chip.Type
	Clock      uint32
}

// CompatibleWith reports whether t appears in the compatibility list.
func (ci ChipInfo) CompatibleWith(t chip.Type) bool {
	if t == chip.None {
		return false
	}
	for _, c := range ci.Compatible {
		if c == t {
			return true
		}
	}
	return false
}
