package logic

import (
	"slices"
	"testing"
)

func TestWindowZeroPadded(t *testing.T) {
	w := NewWindow[int](5)
	w.Push(10)
	w.Push(20)

	got := w.Linearize()
	want := []int{0, 0, 0, 10, 20}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if w.Len() != 2 {
		t.Errorf("Len: got %d, want 2", w.Len())
	}
}

func TestWindowOverwritesOldest(t *testing.T) {
	w := NewWindow[int](5)
	for _, v := range []int{10, 20, 30, 40, 50} {
		w.Push(v)
	}
	if got, want := w.Linearize(), []int{10, 20, 30, 40, 50}; !slices.Equal(got, want) {
		t.Errorf("full: got %v, want %v", got, want)
	}

	w.Push(60)
	got := w.Linearize()
	want := []int{20, 30, 40, 50, 60}
	if !slices.Equal(got, want) {
		t.Errorf("after overflow: got %v, want %v", got, want)
	}
	if len(got) != 5 {
		t.Errorf("length: got %d, want 5", len(got))
	}
	if w.Len() != 5 {
		t.Errorf("Len: got %d, want 5", w.Len())
	}
}

func TestWindowManyWraps(t *testing.T) {
	w := NewWindow[float64](3)
	for i := 1; i <= 11; i++ {
		w.Push(float64(i))
	}
	got := w.Linearize()
	want := []float64{9, 10, 11}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWindowEmpty(t *testing.T) {
	w := NewWindow[float64](4)
	got := w.Linearize()
	if !slices.Equal(got, []float64{0, 0, 0, 0}) {
		t.Errorf("got %v, want all zeros", got)
	}
	if w.Cap() != 4 {
		t.Errorf("Cap: got %d, want 4", w.Cap())
	}
}

func TestLinearizeReturnsCopy(t *testing.T) {
	w := NewWindow[int](3)
	w.Push(1)
	out := w.Linearize()
	out[2] = 99
	if got := w.Linearize()[2]; got != 1 {
		t.Errorf("window mutated through Linearize result: got %d", got)
	}
}
