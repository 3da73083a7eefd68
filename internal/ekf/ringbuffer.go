package ekf

import "unsafe"

// RingBuffer is a fixed-capacity FIFO of timestamped samples. When full, Push
// overwrites the oldest element. Insertion order must be non-decreasing in
// sample time; ReadFirstOlderThan relies on that to return the newest sample
// at or before the requested time with a single backwards scan.
//
// Capacities are small (tens of samples), so lookups are linear. The zero
// value is an unallocated buffer; Allocate reserves storage exactly once per
// length.
type RingBuffer[T Sample] struct {
	buf   []T
	head  int // index of the newest element
	tail  int // index of the oldest element
	count int // occupancy, 0..len(buf)
}

// Allocate reserves capacity for length samples and clears the buffer. It
// returns false if length is not positive. Re-allocating to the same length
// is a no-op that keeps existing contents.
func (b *RingBuffer[T]) Allocate(length int) bool {
	if length < 1 {
		return false
	}
	if b.buf != nil && len(b.buf) == length {
		return true
	}
	b.buf = make([]T, length)
	b.head = 0
	b.tail = 0
	b.count = 0
	return true
}

// Unallocate releases the backing storage; GetLength returns zero afterwards.
func (b *RingBuffer[T]) Unallocate() {
	b.buf = nil
	b.head = 0
	b.tail = 0
	b.count = 0
}

// Push appends a sample, overwriting the oldest element when full. Pushing
// into an unallocated buffer is a no-op.
func (b *RingBuffer[T]) Push(sample T) {
	if len(b.buf) == 0 {
		return
	}
	if b.count == 0 {
		b.buf[b.head] = sample
		b.count = 1
		return
	}
	b.head = (b.head + 1) % len(b.buf)
	b.buf[b.head] = sample
	if b.head == b.tail {
		b.tail = (b.tail + 1) % len(b.buf)
	} else {
		b.count++
	}
}

// GetOldest returns the oldest retained sample. The result is the zero value
// when the buffer is empty.
func (b *RingBuffer[T]) GetOldest() T {
	if b.count == 0 {
		var zero T
		return zero
	}
	return b.buf[b.tail]
}

// GetNewest returns the most recently pushed sample. The result is the zero
// value when the buffer is empty.
func (b *RingBuffer[T]) GetNewest() T {
	if b.count == 0 {
		var zero T
		return zero
	}
	return b.buf[b.head]
}

// GetLength returns the allocated capacity (not the occupancy).
func (b *RingBuffer[T]) GetLength() int {
	return len(b.buf)
}

// Entries returns the current occupancy.
func (b *RingBuffer[T]) Entries() int {
	return b.count
}

// GetTotalSize returns the byte footprint of the backing storage.
func (b *RingBuffer[T]) GetTotalSize() int {
	var zero T
	return int(unsafe.Sizeof(zero)) * len(b.buf)
}

// ReadFirstOlderThan stores into out the sample whose time is the greatest
// value at or before timeUS, returning false when no retained sample
// qualifies. The buffer is scanned newest-first; samples are not consumed.
func (b *RingBuffer[T]) ReadFirstOlderThan(timeUS uint64, out *T) bool {
	if b.count == 0 {
		return false
	}
	idx := b.head
	for i := 0; i < b.count; i++ {
		if b.buf[idx].SampleTime() <= timeUS {
			*out = b.buf[idx]
			return true
		}
		idx = (idx - 1 + len(b.buf)) % len(b.buf)
	}
	return false
}
