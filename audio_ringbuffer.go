package main

import (
	"io"
	"sync"
	"time"
)

// AudioRingBuffer is a bounded byte queue between the period producer and a
// pull-model audio player. Read blocks while the buffer is empty; WriteTimeout
// blocks while it is full, for at most the given timeout, and reports how many
// bytes it managed to queue.
type AudioRingBuffer struct {
	buf      []byte
	readPos  int
	writePos int
	count    int
	capacity int
	mu       sync.Mutex
	cond     *sync.Cond
	closed   bool
}

func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	rb := &AudioRingBuffer{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// WriteTimeout queues p. Nothing is dropped: bytes that do not fit before the
// timeout expires are left to the caller. Returns io.ErrClosedPipe once the
// buffer is closed.
func (rb *AudioRingBuffer) WriteTimeout(p []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	// sync.Cond has no timed wait; wake the writer when the deadline passes.
	timer := time.AfterFunc(timeout, func() {
		rb.mu.Lock()
		rb.cond.Broadcast()
		rb.mu.Unlock()
	})
	defer timer.Stop()

	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(p) {
		if rb.closed {
			return written, io.ErrClosedPipe
		}
		free := rb.capacity - rb.count
		if free == 0 {
			if !time.Now().Before(deadline) {
				break
			}
			rb.cond.Wait()
			continue
		}
		n := min(free, len(p)-written)
		rb.put(p[written : written+n])
		written += n
		rb.cond.Broadcast()
	}
	return written, nil
}

func (rb *AudioRingBuffer) put(p []byte) {
	n := len(p)
	firstChunk := rb.capacity - rb.writePos
	if firstChunk >= n {
		copy(rb.buf[rb.writePos:], p)
	} else {
		copy(rb.buf[rb.writePos:], p[:firstChunk])
		copy(rb.buf[0:], p[firstChunk:])
	}
	rb.writePos = (rb.writePos + n) % rb.capacity
	rb.count += n
}

// Read implements io.Reader. Blocks until data is available or the buffer
// is closed. Returns io.EOF when closed and empty.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := min(len(p), rb.count)
	firstChunk := rb.capacity - rb.readPos
	if firstChunk >= n {
		copy(p, rb.buf[rb.readPos:rb.readPos+n])
	} else {
		copy(p, rb.buf[rb.readPos:])
		copy(p[firstChunk:], rb.buf[:n-firstChunk])
	}
	rb.readPos = (rb.readPos + n) % rb.capacity
	rb.count -= n

	// writers may be waiting for space
	rb.cond.Broadcast()
	return n, nil
}

// Close unblocks every waiting reader and writer.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
