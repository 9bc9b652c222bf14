package bit

import (
	"testing"
)

func TestNibbles(t *testing.T) {
	tests := []struct {
		high, low uint8
		expected  uint8
	}{
		{0x0A, 0x0B, 0xAB},
		{0x00, 0x00, 0x00},
		{0xFF, 0xFF, 0xFF},
		{0x13, 0x24, 0x34},
	}

	for _, tt := range tests {
		result := Nibbles(tt.high, tt.low)
		if result != tt.expected {
			t.Errorf("Nibbles(%X, %X) = %X; want %X", tt.high, tt.low, result, tt.expected)
		}
		if HighNibble(result) != tt.high&0x0F || LowNibble(result) != tt.low&0x0F {
			t.Errorf("split of %X = (%X, %X)", result, HighNibble(result), LowNibble(result))
		}
	}
}

func TestSetClear(t *testing.T) {
	tests := []struct {
		index, value uint8
		set, clear   uint8
	}{
		{0, 0b00000000, 0b00000001, 0b00000000},
		{7, 0b01111111, 0b11111111, 0b01111111},
		{4, 0b00010000, 0b00010000, 0b00000000},
	}

	for _, tt := range tests {
		if got := Set(tt.index, tt.value); got != tt.set {
			t.Errorf("Set(%d, %08b) = %08b; want %08b", tt.index, tt.value, got, tt.set)
		}
		if got := Clear(tt.index, tt.value); got != tt.clear {
			t.Errorf("Clear(%d, %08b) = %08b; want %08b", tt.index, tt.value, got, tt.clear)
		}
		if got := SetTo(tt.index, tt.value, true); got != tt.set {
			t.Errorf("SetTo(%d, %08b, true) = %08b; want %08b", tt.index, tt.value, got, tt.set)
		}
		if !IsSet(tt.index, tt.set) {
			t.Errorf("IsSet(%d, %08b) = false", tt.index, tt.set)
		}
	}
}

func TestExtractPack(t *testing.T) {
	tests := []struct {
		value         uint8
		high, low     uint8
		expectedField uint8
	}{
		{0b11010110, 6, 4, 0b101},
		{0b00001110, 3, 1, 0b111},
		{0b11110000, 7, 4, 0b1111},
	}

	for _, tt := range tests {
		field := ExtractBits(tt.value, tt.high, tt.low)
		if field != tt.expectedField {
			t.Errorf("ExtractBits(%08b, %d, %d) = %b; want %b", tt.value, tt.high, tt.low, field, tt.expectedField)
		}
		width := tt.high - tt.low + 1
		if got := ExtractBits(Pack(field, width, tt.low), tt.high, tt.low); got != field {
			t.Errorf("Pack/ExtractBits mismatch for %b: %b", field, got)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-3, 0, 15) != 0 || Clamp(20, 0, 15) != 15 || Clamp(7, 0, 15) != 7 {
		t.Errorf("Clamp out of range")
	}
}
