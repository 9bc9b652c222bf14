package chip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"YM2413", YM2413},
		{"ym2413", YM2413},
		{" vrc7 ", None},
		{"23", YMF281},
		{"AY-3-8910", AY8910},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.want == None {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "YM2413", YM2413.String())
	assert.Equal(t, "chip(999)", Type(999).String())
}
