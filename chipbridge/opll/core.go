package opll

import "github.com/valerio/go-chipbridge/chipbridge/fmcore"

// Core is the synthesis engine the backend feeds in emulated mode. Writes
// use the chip's two ports: 0 latches an address, 1 writes data.
type Core interface {
	Reset()
	Write(port int, data uint8)
	// Render produces one frame, one output per voice slot.
	Render(out []int32)
}

// patchSetter is implemented by cores with switchable instrument ROMs.
type patchSetter interface {
	SetPatchSet(fmcore.PatchSet)
}

var _ Core = (*fmcore.Chip)(nil)
