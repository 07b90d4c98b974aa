package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestColors_QuantizeToTenths(t *testing.T) {
	in := []float64{0, 0, 0, 0, 55, 55, 15.04, 139.9, -3}
	enc := EncodeColors(in)
	out, err := DecodeColors(enc)
	if err != nil {
		t.Fatalf("DecodeColors: %v", err)
	}
	want := []float64{0, 0, 0, 0, 55, 55, 15, 139.9, 0}
	if len(out) != len(want) {
		t.Fatalf("len=%d", len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("color %d: got %v want %v", i, out[i], want[i])
		}
	}

	black := EncodeColors(make([]float64, 10000))
	if len(black) > 8 {
		t.Fatalf("uniform world should compress, got %d bytes", len(black))
	}
}

func TestDecodeRLE_RejectsGarbage(t *testing.T) {
	if _, err := DecodeRLE("!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
	// id 1, run 0
	if _, err := DecodeRLE("AQA="); err == nil {
		t.Fatalf("expected zero run error")
	}
}
