//go:build darwin || linux || freebsd

package hw

import (
	"runtime"

	"github.com/ebitengine/purego"
)

// DefaultLibraryName is the driver module looked up when no path is given.
var DefaultLibraryName = func() string {
	if runtime.GOOS == "darwin" {
		return "libchipbridge.dylib"
	}
	return "libchipbridge.so"
}()

func openLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeLibrary(handle uintptr) error {
	return purego.Dlclose(handle)
}
