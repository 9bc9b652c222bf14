package bit

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet(index, value uint8) bool {
	return ((value >> index) & 1) == 1
}

// Set will return the passed byte with the bit at the specified index set to 1.
func Set(index, value uint8) uint8 {
	return value | (1 << index)
}

// Clear will return the passed byte with the bit at the specified index set to 0.
func Clear(index, value uint8) uint8 {
	return value & ^(1 << index)
}

// SetTo sets or clears the bit at index depending on on.
func SetTo(index, value uint8, on bool) uint8 {
	if on {
		return Set(index, value)
	}
	return Clear(index, value)
}

// Flag returns 1 when b is true, 0 otherwise.
func Flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// ExtractBits extracts bits from highBit to lowBit (inclusive)
// Example: ExtractBits(0b11010110, 6, 4) -> 0b101 (extracts bits 6, 5, 4)
func ExtractBits(value uint8, highBit, lowBit uint8) uint8 {
	shift := lowBit
	width := highBit - lowBit + 1
	mask := uint8((1 << width) - 1)
	return (value >> shift) & mask
}

// Pack places field (masked to width bits) at lowBit.
func Pack(field uint8, width, lowBit uint8) uint8 {
	mask := uint8((1 << width) - 1)
	return (field & mask) << lowBit
}

// HighNibble returns bits 7-4.
func HighNibble(value uint8) uint8 {
	return value >> 4
}

// LowNibble returns bits 3-0.
func LowNibble(value uint8) uint8 {
	return value & 0x0F
}

// Nibbles joins two 4 bit values into a byte, high first.
func Nibbles(high, low uint8) uint8 {
	return (high&0x0F)<<4 | (low & 0x0F)
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
