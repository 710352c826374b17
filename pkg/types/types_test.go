package types

import "testing"

func TestRectEdges(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	if r.Right() != 40 {
		t.Errorf("Right() = %f, want 40", r.Right())
	}
	if r.Bottom() != 60 {
		t.Errorf("Bottom() = %f, want 60", r.Bottom())
	}
	if r.Aspect() != 0.75 {
		t.Errorf("Aspect() = %f, want 0.75", r.Aspect())
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{5, 5}, true},
		{Point{0, 0}, true},
		{Point{10, 10}, true},
		{Point{11, 5}, false},
		{Point{-1, 5}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestRectWithin(t *testing.T) {
	if !(Rect{X: 0, Y: 0, Width: 100, Height: 100}).Within(100, 100) {
		t.Error("rect equal to the frame should be within it")
	}
	if (Rect{X: 1, Y: 0, Width: 100, Height: 100}).Within(100, 100) {
		t.Error("rect overflowing right edge should not be within")
	}
}

func TestRectPixels(t *testing.T) {
	x0, y0, x1, y1 := Rect{X: 1.4, Y: 2.6, Width: 10, Height: 10}.Pixels()
	if x0 != 1 || y0 != 3 || x1 != 11 || y1 != 13 {
		t.Errorf("Pixels() = %d,%d,%d,%d", x0, y0, x1, y1)
	}
}

func TestBoxToPixels(t *testing.T) {
	r := Box{X: 0.25, Y: 0.5, W: 0.5, H: 0.25}.ToPixels(200, 400)
	if r != (Rect{X: 50, Y: 200, Width: 100, Height: 100}) {
		t.Errorf("ToPixels() = %+v", r)
	}
}
