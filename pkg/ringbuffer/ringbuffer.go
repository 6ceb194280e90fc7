// SPDX-License-Identifier: MIT
//
// Package ringbuffer provides a fixed-capacity FIFO of float32 samples for
// delay lines and other rolling sample windows used inside real-time audio
// callbacks.
//
// The buffer reserves one extra storage slot so that head == tail always
// means "empty" and no separate full flag is needed. It is meant for a single
// producer and a single consumer; it takes no locks and never allocates after
// New.
package ringbuffer

import "errors"

var (
	// ErrOverflow is returned by Add when the buffer already holds Capacity samples.
	ErrOverflow = errors.New("ringbuffer: overflow when adding to full buffer")
	// ErrUnderflow is returned by Remove when the buffer is empty.
	ErrUnderflow = errors.New("ringbuffer: underflow when removing from empty buffer")
)

// RingBuffer is a fixed-capacity FIFO of float32 samples.
type RingBuffer struct {
	capacity int
	storage  []float32 // capacity + 1 slots
	head     int       // next write index
	tail     int       // next read index
}

// New allocates a ring buffer that holds up to capacity samples. A capacity
// of zero is legal and yields a buffer whose first Add overflows. New panics
// on a negative capacity.
func New(capacity int) *RingBuffer {
	if capacity < 0 {
		panic("ringbuffer: negative capacity")
	}
	return &RingBuffer{
		capacity: capacity,
		storage:  make([]float32, capacity+1),
	}
}

// Capacity returns the number of samples the buffer can hold.
func (r *RingBuffer) Capacity() int {
	return r.capacity
}

// Count returns the number of buffered samples.
func (r *RingBuffer) Count() int {
	n := r.head - r.tail
	if n < 0 {
		n += r.capacity + 1
	}
	return n
}

// Add appends sample at the head. If the buffer was already full the write
// is rolled back, the contents stay intact and ErrOverflow is returned.
func (r *RingBuffer) Add(sample float32) error {
	prev := r.head
	r.storage[r.head] = sample
	r.head = r.wrap(r.head + 1)

	if r.head == r.tail {
		r.head = prev
		return ErrOverflow
	}
	return nil
}

// Remove pops the oldest sample. It returns ErrUnderflow when empty.
func (r *RingBuffer) Remove() (float32, error) {
	if r.head == r.tail {
		return 0, ErrUnderflow
	}

	sample := r.storage[r.tail]
	r.tail = r.wrap(r.tail + 1)

	return sample, nil
}

// Reset drops all buffered samples without reallocating.
func (r *RingBuffer) Reset() {
	clear(r.storage)
	r.head = 0
	r.tail = 0
}

// wrap resets an index to zero once it has moved past the last slot.
func (r *RingBuffer) wrap(index int) int {
	if index > r.capacity {
		return 0
	}
	return index
}
