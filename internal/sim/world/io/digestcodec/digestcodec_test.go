package digestcodec

import (
	"bytes"
	"testing"
)

func TestWriteF64_NegativeZero(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	negZero := 0.0
	negZero = -negZero
	WriteF64(&a, &tmp, 0)
	WriteF64(&b, &tmp, negZero)
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("-0 and +0 hashed differently")
	}
}

func TestWriteString_NoAliasing(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteString(&a, &tmp, "ab")
	WriteString(&a, &tmp, "c")
	WriteString(&b, &tmp, "a")
	WriteString(&b, &tmp, "bc")
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("adjacent strings aliased")
	}
}

func TestWriteSortedStrings_OrderIndependent(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteSortedStrings(&a, &tmp, []string{"y", "x"})
	WriteSortedStrings(&b, &tmp, []string{"x", "y"})
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("order leaked into digest")
	}
}
