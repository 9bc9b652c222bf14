package hwtest

import (
	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/macro"
)

// Dispatch is an inert dispatch, only useful as an allocation key.
type Dispatch struct {
	Name string
	Type chip.Type
}

func NewDispatch(name string, t chip.Type) *Dispatch {
	return &Dispatch{Name: name, Type: t}
}

func (d *Dispatch) Init(dispatch.Host, int, int, uint32) int      { return 0 }
func (d *Dispatch) Quit()                                         {}
func (d *Dispatch) Dispatch(dispatch.Command) int                 { return 0 }
func (d *Dispatch) Tick(bool)                                     {}
func (d *Dispatch) Acquire(bufL, bufR []int16, start, length int) {}
func (d *Dispatch) MuteChannel(int, bool)                         {}
func (d *Dispatch) ForceIns()                                     {}
func (d *Dispatch) Reset()                                        {}
func (d *Dispatch) NotifyInsChange(int)                           {}
func (d *Dispatch) NotifyInsDeletion(*instrument.Instrument)      {}
func (d *Dispatch) RegisterPool() []byte                          { return nil }
func (d *Dispatch) RegisterPoolSize() int                         { return 0 }
func (d *Dispatch) ChanState(int) any                             { return nil }
func (d *Dispatch) ChanMacroInt(int) *macro.Int                   { return nil }
func (d *Dispatch) OscBuffer(int) *dispatch.OscBuffer             { return nil }
func (d *Dispatch) Poke(uint32, uint16)                           {}
func (d *Dispatch) PokeList([]dispatch.RegWrite)                  {}
func (d *Dispatch) Rate() int                                     { return 0 }
func (d *Dispatch) Channels() int                                 { return 0 }
func (d *Dispatch) ChipType() chip.Type                           { return d.Type }
func (d *Dispatch) SetFlags(uint32)                               {}
func (d *Dispatch) ToggleRegisterDump(bool)                       {}
func (d *Dispatch) RegisterDump() []dispatch.RegWrite             { return nil }

var _ dispatch.Dispatch = (*Dispatch)(nil)
