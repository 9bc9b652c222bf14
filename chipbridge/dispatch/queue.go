package dispatch

// QueuedWrite is a register write waiting to reach the chip. Chips with a
// latched address port take it in two steps: AddrOrVal is false while the
// address has not been written yet and true once only the value remains.
type QueuedWrite struct {
	Addr      uint16
	Val       uint8
	AddrOrVal bool
}

// RegWrite is a plain address/value pair, used by poke lists and register
// dumps.
type RegWrite struct {
	Addr uint32
	Val  uint16
}

const defaultQueueCapacity = 512

// WriteQueue is a FIFO ring of queued writes. Pushing never allocates while
// the queue is below its capacity; it grows by doubling otherwise.
type WriteQueue struct {
	buf  []QueuedWrite
	head int
	n    int
}

// NewWriteQueue creates a queue with room for capacity writes.
func NewWriteQueue(capacity int) *WriteQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &WriteQueue{buf: make([]QueuedWrite, capacity)}
}

// Push appends a write in address phase.
func (q *WriteQueue) Push(addr uint16, val uint8) {
	if q.buf == nil {
		q.buf = make([]QueuedWrite, defaultQueueCapacity)
	}
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = QueuedWrite{Addr: addr, Val: val}
	q.n++
}

func (q *WriteQueue) grow() {
	next := make([]QueuedWrite, len(q.buf)*2)
	for i := 0; i < q.n; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
}

// Front returns the oldest write, or nil when empty. The pointer stays valid
// until the next Push or Pop, so callers can flip AddrOrVal in place.
func (q *WriteQueue) Front() *QueuedWrite {
	if q.n == 0 {
		return nil
	}
	return &q.buf[q.head]
}

// Pop drops the oldest write.
func (q *WriteQueue) Pop() {
	if q.n == 0 {
		return
	}
	q.head = (q.head + 1) % len(q.buf)
	q.n--
}

// Len returns the number of pending writes.
func (q *WriteQueue) Len() int {
	return q.n
}

// Empty reports whether nothing is pending.
func (q *WriteQueue) Empty() bool {
	return q.n == 0
}

// Clear drops every pending write.
func (q *WriteQueue) Clear() {
	q.head = 0
	q.n = 0
}
