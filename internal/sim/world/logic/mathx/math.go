package mathx

import "math"

// Infinitesimal is the threshold below which trig results are snapped to zero
// so that cardinal headings produce exact offsets.
const Infinitesimal = 3.2e-15

// NormalizeHeading folds h into [0, 360).
func NormalizeHeading(h float64) float64 {
	if h >= 0 && h < 360 {
		return h
	}
	h = math.Mod(math.Mod(h, 360)+360, 360)
	if h >= 360 {
		return 0
	}
	return h
}

// SubtractHeadings returns the signed turn from h2 to h1 in (-180, 180].
func SubtractHeadings(h1, h2 float64) float64 {
	if h1 < 0 || h1 >= 360 {
		h1 = NormalizeHeading(h1)
	}
	if h2 < 0 || h2 >= 360 {
		h2 = NormalizeHeading(h2)
	}
	diff := h1 - h2
	if diff > -180 && diff <= 180 {
		return diff
	}
	if diff > 0 {
		return diff - 360
	}
	return diff + 360
}

// SinCos returns sin and cos of a heading in degrees, with values smaller
// than Infinitesimal snapped to zero.
func SinCos(heading float64) (sin, cos float64) {
	r := heading * math.Pi / 180
	sin, cos = math.Sin(r), math.Cos(r)
	if math.Abs(sin) < Infinitesimal {
		sin = 0
	}
	if math.Abs(cos) < Infinitesimal {
		cos = 0
	}
	return sin, cos
}

// Round follows the "half up" rule used for patch coordinates: -0.5 rounds to 0.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Mix derives a well-distributed 64-bit value from a seed and a salt.
func Mix(seed int64, salt uint64) uint64 {
	return mix64(uint64(seed) ^ (salt * 0x9e3779b97f4a7c15))
}
