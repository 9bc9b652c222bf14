package hw_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-chipbridge/chipbridge/hw"
)

func TestDynamicLoaderMissingLibrary(t *testing.T) {
	l := hw.DynamicLoader{Path: filepath.Join(t.TempDir(), "no-such-driver.so")}

	lib, err := l.Open()
	require.Error(t, err)
	assert.Nil(t, lib)

	m := hw.NewManager(l)
	assert.False(t, m.LoadDriver())
	assert.Equal(t, hw.PhaseUnloaded, m.Phase())
}
