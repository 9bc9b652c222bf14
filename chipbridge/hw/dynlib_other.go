//go:build !darwin && !linux && !freebsd && !windows

package hw

// DefaultLibraryName is the driver module looked up when no path is given.
var DefaultLibraryName = "libchipbridge.so"

func openLibrary(path string) (uintptr, error) {
	return 0, ErrNotSupported
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return 0, ErrNotSupported
}

func closeLibrary(handle uintptr) error {
	return nil
}
