package hw

import (
	"errors"
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/valerio/go-chipbridge/chipbridge/chip"
)

// DynamicLoader opens a driver shared library at runtime. The library must
// export the following C functions (m is the opaque interface manager
// returned by the entry point, non-zero int32 results mean success):
//
//	void*       chipbridge_interface_manager(void);
//	int32_t     chipbridge_initialize(void* m);
//	int32_t     chipbridge_release(void* m);
//	int32_t     chipbridge_release_all(void* m);
//	int32_t     chipbridge_reset(void* m);
//	int32_t     chipbridge_interface_count(void* m);
//	int32_t     chipbridge_chip_count(void* m, int32_t iface);
//	int32_t     chipbridge_chip_type(void* m, int32_t iface, int32_t slot);
//	int32_t     chipbridge_chip_compatible(void* m, int32_t iface, int32_t slot, int32_t n);
//	uint32_t    chipbridge_chip_clock(void* m, int32_t iface, int32_t slot);
//	int32_t     chipbridge_chip_init(void* m, int32_t iface, int32_t slot);
//	int32_t     chipbridge_chip_reset(void* m, int32_t iface, int32_t slot);
//	int32_t     chipbridge_set_register(void* m, int32_t iface, int32_t slot, uint32_t addr, uint32_t data);
//	const char* chipbridge_chip_name(void* m, int32_t iface, int32_t slot); // optional
//
// Functions are bound through purego, so no cgo toolchain is needed.
type DynamicLoader struct {
	Path string
}

// ErrNotSupported is returned when the platform cannot load shared libraries.
var ErrNotSupported = errors.New("dynamic driver loading not supported on this platform")

const entryPoint = "chipbridge_interface_manager"

// Open loads the library; symbols are resolved by InterfaceManager.
func (l DynamicLoader) Open() (Library, error) {
	path := l.Path
	if path == "" {
		path = DefaultLibraryName
	}

	h, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &dynLibrary{handle: h, path: path}, nil
}

type driverFuncs struct {
	manager        func() uintptr
	initialize     func(uintptr) int32
	release        func(uintptr) int32
	releaseAll     func(uintptr) int32
	reset          func(uintptr) int32
	interfaceCount func(uintptr) int32
	chipCount      func(uintptr, int32) int32
	chipType       func(uintptr, int32, int32) int32
	chipCompatible func(uintptr, int32, int32, int32) int32
	chipClock      func(uintptr, int32, int32) uint32
	chipInit       func(uintptr, int32, int32) int32
	chipReset      func(uintptr, int32, int32) int32
	setRegister    func(uintptr, int32, int32, uint32, uint32) int32
	chipName       func(uintptr, int32, int32) string
}

type dynLibrary struct {
	handle uintptr
	path   string
	fns    *driverFuncs
}

func (d *dynLibrary) bind(fptr any, name string, required bool) error {
	sym, err := lookupSymbol(d.handle, name)
	if err != nil || sym == 0 {
		if required {
			return fmt.Errorf("missing symbol %s in %s", name, d.path)
		}
		return nil
	}
	purego.RegisterFunc(fptr, sym)
	return nil
}

func (d *dynLibrary) resolve() error {
	if d.fns != nil {
		return nil
	}

	f := &driverFuncs{}
	bindings := []struct {
		fptr any
		name string
	}{
		{&f.manager, entryPoint},
		{&f.initialize, "chipbridge_initialize"},
		{&f.release, "chipbridge_release"},
		{&f.releaseAll, "chipbridge_release_all"},
		{&f.reset, "chipbridge_reset"},
		{&f.interfaceCount, "chipbridge_interface_count"},
		{&f.chipCount, "chipbridge_chip_count"},
		{&f.chipType, "chipbridge_chip_type"},
		{&f.chipCompatible, "chipbridge_chip_compatible"},
		{&f.chipClock, "chipbridge_chip_clock"},
		{&f.chipInit, "chipbridge_chip_init"},
		{&f.chipReset, "chipbridge_chip_reset"},
		{&f.setRegister, "chipbridge_set_register"},
	}
	for _, b := range bindings {
		if err := d.bind(b.fptr, b.name, true); err != nil {
			return err
		}
	}
	if err := d.bind(&f.chipName, "chipbridge_chip_name", false); err != nil {
		return err
	}

	d.fns = f
	return nil
}

func (d *dynLibrary) InterfaceManager() (InterfaceManager, error) {
	if d.handle == 0 {
		return nil, errors.New("library closed")
	}
	if err := d.resolve(); err != nil {
		return nil, err
	}

	m := d.fns.manager()
	if m == 0 {
		return nil, fmt.Errorf("%s returned no interface manager", entryPoint)
	}
	return &dynManager{fns: d.fns, m: m}, nil
}

func (d *dynLibrary) Close() error {
	if d.handle == 0 {
		return nil
	}
	err := closeLibrary(d.handle)
	d.handle = 0
	d.fns = nil
	return err
}

type dynManager struct {
	fns *driverFuncs
	m   uintptr
}

func (dm *dynManager) InitializeInstance() bool   { return dm.fns.initialize(dm.m) != 0 }
func (dm *dynManager) ReleaseInstance() bool      { return dm.fns.release(dm.m) != 0 }
func (dm *dynManager) ReleaseAllSoundChips() bool { return dm.fns.releaseAll(dm.m) != 0 }
func (dm *dynManager) Reset() bool                { return dm.fns.reset(dm.m) != 0 }
func (dm *dynManager) InterfaceCount() int        { return int(dm.fns.interfaceCount(dm.m)) }

func (dm *dynManager) Interface(i int) SoundInterface {
	if i < 0 || i >= dm.InterfaceCount() {
		return nil
	}
	return &dynInterface{dm: dm, iface: int32(i)}
}

type dynInterface struct {
	dm    *dynManager
	iface int32
}

func (di *dynInterface) SoundChipCount() int {
	return int(di.dm.fns.chipCount(di.dm.m, di.iface))
}

func (di *dynInterface) SoundChip(j int) SoundChip {
	if j < 0 || j >= di.SoundChipCount() {
		return nil
	}
	return &dynChip{dm: di.dm, iface: di.iface, slot: int32(j)}
}

type dynChip struct {
	dm    *dynManager
	iface int32
	slot  int32
}

func (dc *dynChip) SoundChipType() chip.Type {
	return chip.Type(dc.dm.fns.chipType(dc.dm.m, dc.iface, dc.slot))
}

func (dc *dynChip) SoundChipInfo() ChipInfo {
	f := dc.dm.fns
	info := ChipInfo{
		Type:  dc.SoundChipType(),
		Clock: f.chipClock(dc.dm.m, dc.iface, dc.slot),
	}
	for n := range info.Compatible {
		info.Compatible[n] = chip.Type(f.chipCompatible(dc.dm.m, dc.iface, dc.slot, int32(n)))
	}
	if f.chipName != nil {
		info.Name = f.chipName(dc.dm.m, dc.iface, dc.slot)
	}
	if info.Name == "" {
		info.Name = info.Type.String()
	}
	return info
}

func (dc *dynChip) Init() bool {
	return dc.dm.fns.chipInit(dc.dm.m, dc.iface, dc.slot) != 0
}

func (dc *dynChip) Reset() bool {
	return dc.dm.fns.chipReset(dc.dm.m, dc.iface, dc.slot) != 0
}

func (dc *dynChip) SetRegister(addr, data uint32) bool {
	return dc.dm.fns.setRegister(dc.dm.m, dc.iface, dc.slot, addr, data) != 0
}
