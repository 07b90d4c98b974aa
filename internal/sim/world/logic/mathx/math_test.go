package mathx

import "testing"

func TestNormalizeHeading(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		359:  359,
		360:  0,
		-90:  270,
		725:  5,
		-720: 0,
	}
	for in, want := range cases {
		if got := NormalizeHeading(in); got != want {
			t.Fatalf("NormalizeHeading(%v)=%v want %v", in, got, want)
		}
	}
}

func TestSubtractHeadings(t *testing.T) {
	if got := SubtractHeadings(10, 350); got != 20 {
		t.Fatalf("got %v want 20", got)
	}
	if got := SubtractHeadings(350, 10); got != -20 {
		t.Fatalf("got %v want -20", got)
	}
	if got := SubtractHeadings(180, 0); got != 180 {
		t.Fatalf("got %v want 180", got)
	}
	if got := SubtractHeadings(0, 180); got != 180 {
		t.Fatalf("got %v want 180", got)
	}
}

func TestSinCosCardinals(t *testing.T) {
	s, c := SinCos(90)
	if s != 1 || c != 0 {
		t.Fatalf("SinCos(90)=(%v,%v)", s, c)
	}
	s, c = SinCos(180)
	if s != 0 || c != -1 {
		t.Fatalf("SinCos(180)=(%v,%v)", s, c)
	}
}

func TestRoundHalfUp(t *testing.T) {
	if Round(-0.5) != 0 || Round(0.49) != 0 || Round(0.5) != 1 || Round(-0.51) != -1 {
		t.Fatalf("unexpected rounding")
	}
}
