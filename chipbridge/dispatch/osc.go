package dispatch

// OscBufferSize is the capacity of an oscilloscope buffer in samples.
const OscBufferSize = 65536

// OscBuffer receives one channel's output while rendering. It is a ring:
// Needle points at the next slot to write.
type OscBuffer struct {
	Data   [OscBufferSize]int16
	Needle uint32
	Rate   int
}

// NewOscBuffer allocates a buffer for the given sample rate.
func NewOscBuffer(rate int) *OscBuffer {
	return &OscBuffer{Rate: rate}
}

// Push stores one sample.
func (o *OscBuffer) Push(s int16) {
	o.Data[o.Needle&(OscBufferSize-1)] = s
	o.Needle++
}

// Last copies the n most recent samples into dst (oldest first) and returns
// the filled slice.
func (o *OscBuffer) Last(dst []int16, n int) []int16 {
	if n > OscBufferSize {
		n = OscBufferSize
	}
	dst = dst[:0]
	start := o.Needle - uint32(n)
	for i := 0; i < n; i++ {
		dst = append(dst, o.Data[(start+uint32(i))&(OscBufferSize-1)])
	}
	return dst
}

// Clear zeroes the buffer.
func (o *OscBuffer) Clear() {
	o.Data = [OscBufferSize]int16{}
	o.Needle = 0
}
