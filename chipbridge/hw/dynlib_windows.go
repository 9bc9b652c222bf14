//go:build windows

package hw

import "golang.org/x/sys/windows"

// DefaultLibraryName is the driver module looked up when no path is given.
var DefaultLibraryName = "chipbridge.dll"

func openLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeLibrary(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}
