package logic

import (
	"testing"
	"time"
)

func TestScale(t *testing.T) {
	s := Scaler{Factor: 10}
	cases := []struct {
		in, want time.Duration
	}{
		{0, 0},
		{10 * time.Second, time.Second},
		{5 * time.Millisecond, time.Millisecond}, // floor of one unit
		{1 * time.Millisecond, time.Millisecond},
		{180 * time.Second, 18 * time.Second},
	}
	for _, c := range cases {
		if got := s.Scale(c.in); got != c.want {
			t.Errorf("Scale(%v): got %v, want %v", c.in, got, c.want)
		}
	}
}

func TestScaleFactorBelowOne(t *testing.T) {
	s := Scaler{Factor: 0}
	if got := s.Scale(3 * time.Second); got != 3*time.Second {
		t.Errorf("got %v, want 3s", got)
	}
}
