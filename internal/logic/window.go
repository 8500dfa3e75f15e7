package logic

// Number is the set of element types a Window or Median can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~uint16 | ~float32 | ~float64
}

// Window is a fixed-capacity ring of values for one telemetry channel.
// Not safe for concurrent use; the caller synchronizes.
type Window[T Number] struct {
	buf   []T
	head  int // next write position
	count int
}

// NewWindow creates a Window holding the last capacity values.
func NewWindow[T Number](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{buf: make([]T, capacity)}
}

// Push appends v, overwriting the oldest value once full.
func (w *Window[T]) Push(v T) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Linearize returns Cap() values ordered oldest to newest.
// Until the window fills up the oldest positions are zero.
func (w *Window[T]) Linearize() []T {
	n := len(w.buf)
	out := make([]T, n)
	pad := n - w.count
	// Oldest item is at (head - count) mod n
	start := (w.head - w.count + n) % n
	for i := 0; i < w.count; i++ {
		out[pad+i] = w.buf[(start+i)%n]
	}
	return out
}

// Len returns the number of values pushed, up to Cap.
func (w *Window[T]) Len() int {
	return w.count
}

// Cap returns the fixed capacity.
func (w *Window[T]) Cap() int {
	return len(w.buf)
}
