package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// ColorScale is the number of quantization steps per color unit. Patch
// colors on the wire keep one decimal.
const ColorScale = 10

// maxDecoded bounds DecodeRLE output so a corrupt frame cannot exhaust memory.
const maxDecoded = 1 << 24

// EncodeRLE encodes a sequence of ids into base64(varint pairs).
// The pairs are (id, run_len) repeated.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("id too large: %d", b)
		}
		if run == 0 || run > maxDecoded-uint64(len(out)) {
			return nil, fmt.Errorf("bad run length %d at %d", run, i)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(b))
		}
	}
	return out, nil
}

// EncodeColors quantizes colors in [0, 140) to tenths and run-length
// encodes them. Large uniform regions such as a fresh black world collapse
// to a handful of bytes.
func EncodeColors(colors []float64) string {
	ids := make([]uint16, len(colors))
	for i, c := range colors {
		q := math.Round(c * ColorScale)
		if q < 0 || math.IsNaN(q) {
			q = 0
		}
		if q > math.MaxUint16 {
			q = math.MaxUint16
		}
		ids[i] = uint16(q)
	}
	return EncodeRLE(ids)
}

// DecodeColors reverses EncodeColors, returning colors at tenth precision.
// The server only encodes; observer clients decode patch_colors_rle with it.
func DecodeColors(b64 string) ([]float64, error) {
	ids, err := DecodeRLE(b64)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = float64(id) / ColorScale
	}
	return out, nil
}
