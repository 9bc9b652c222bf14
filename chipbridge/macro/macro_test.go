package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
)

func run(m *Int, steps int, pick func(*Int) State) []int {
	var out []int
	for i := 0; i < steps; i++ {
		m.Next()
		s := pick(m)
		if s.Had {
			out = append(out, s.Val)
		} else {
			out = append(out, -1)
		}
	}
	return out
}

func vol(m *Int) State { return m.Vol }

func TestMacroSequences(t *testing.T) {
	tests := []struct {
		name  string
		macro instrument.Macro
		steps int
		want  []int
	}{
		{
			name:  "one shot",
			macro: instrument.Macro{Values: []int{15, 10, 5}, Loop: -1, Release: -1},
			steps: 5,
			want:  []int{15, 10, 5, -1, -1},
		},
		{
			name:  "loop",
			macro: instrument.Macro{Values: []int{1, 2, 3}, Loop: 1, Release: -1},
			steps: 6,
			want:  []int{1, 2, 3, 2, 3, 2},
		},
		{
			name:  "hold at release",
			macro: instrument.Macro{Values: []int{9, 8, 7}, Loop: -1, Release: 1},
			steps: 4,
			want:  []int{9, 8, 8, 8},
		},
		{
			name:  "empty",
			macro: instrument.Macro{Loop: -1, Release: -1},
			steps: 2,
			want:  []int{-1, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := instrument.New("test")
			ins.Std.Vol = tt.macro

			var m Int
			m.Init(ins)
			assert.Equal(t, tt.want, run(&m, tt.steps, vol))
		})
	}
}

func TestMacroRelease(t *testing.T) {
	ins := instrument.New("test")
	ins.Std.Vol = instrument.Macro{Values: []int{9, 8, 7, 6}, Loop: -1, Release: 1}

	var m Int
	m.Init(ins)
	assert.Equal(t, []int{9, 8, 8}, run(&m, 3, vol))

	m.Release()
	assert.Equal(t, []int{7, 6, -1}, run(&m, 3, vol))
}

func TestMacroNilInstrument(t *testing.T) {
	var m Int
	m.Init(nil)
	m.Next()
	assert.False(t, m.Vol.Had)
	assert.Nil(t, m.Instrument())
}
