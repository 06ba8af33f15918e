package geometry

import "testing"

func TestFrameAccessors(t *testing.T) {
	f := FrameFromLTWH(10, 20, 30, 40)
	if f.Right() != 40 || f.Bottom() != 60 {
		t.Errorf("edges = (%v, %v), want (40, 60)", f.Right(), f.Bottom())
	}
	if got := f.Size(); got != (Size{Width: 30, Height: 40}) {
		t.Errorf("Size() = %+v", got)
	}
	if got := f.Origin(); got != (Point{X: 10, Y: 20}) {
		t.Errorf("Origin() = %+v", got)
	}
}

func TestFrameTranslateAndEqual(t *testing.T) {
	f := FrameFromLTWH(0, 0, 5, 5).Translate(Point{X: 1.5, Y: -2})
	want := Frame{X: 1.5, Y: -2, Width: 5, Height: 5}
	if !f.Equal(want) {
		t.Errorf("Translate = %+v, want %+v", f, want)
	}
	if !f.Equal(Frame{X: 1.50001, Y: -2, Width: 5, Height: 5}) {
		t.Error("frames within epsilon should be equal")
	}
}

func TestFrameIsEmpty(t *testing.T) {
	tests := []struct {
		f    Frame
		want bool
	}{
		{Frame{Width: 0, Height: 10}, true},
		{Frame{Width: 10, Height: -1}, true},
		{Frame{Width: 1, Height: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.f.IsEmpty(); got != tt.want {
			t.Errorf("%+v.IsEmpty() = %v, want %v", tt.f, got, tt.want)
		}
	}
}
