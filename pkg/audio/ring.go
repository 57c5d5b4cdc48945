package audio

import "sync"

// Ring keeps the most recent samples written by an input callback.
// Writers and readers may run on different goroutines.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	next    int
	written uint64
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest ones once full.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(samples) > len(r.buf) {
		samples = samples[len(samples)-len(r.buf):]
	}
	for _, s := range samples {
		r.buf[r.next] = s
		r.next = (r.next + 1) % len(r.buf)
	}
	r.written += uint64(len(samples))
}

// Latest copies the newest len(dst) samples into dst, oldest first.
// Positions never written are zero.
func (r *Ring) Latest(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	avail := len(r.buf)
	if r.written < uint64(avail) {
		avail = int(r.written)
	}

	pad := 0
	if n > avail {
		pad = n - avail
	}
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}

	start := r.next - (n - pad)
	for start < 0 {
		start += len(r.buf)
	}
	for i := pad; i < n; i++ {
		dst[i] = r.buf[start]
		start = (start + 1) % len(r.buf)
	}
}

// Written returns the total number of samples ever written.
func (r *Ring) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
