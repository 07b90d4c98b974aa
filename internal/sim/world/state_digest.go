package world

import (
	"crypto/sha256"
	"encoding/hex"

	"logosim.ai/internal/sim/world/io/digestcodec"
)

// StateDigest hashes everything observable about the world: bounds and wrap
// flags, ticks, globals, then every patch, turtle and link in identity order.
// Two worlds driven by the same seed and commands produce equal digests.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp)
	w.digestPatches(h, &tmp)
	w.digestTurtles(h, &tmp)
	w.digestLinks(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestHeader(h digestcodec.Writer, tmp *[8]byte) {
	b := w.topo.Bounds()
	digestcodec.WriteI64(h, tmp, int64(b.MinX))
	digestcodec.WriteI64(h, tmp, int64(b.MaxX))
	digestcodec.WriteI64(h, tmp, int64(b.MinY))
	digestcodec.WriteI64(h, tmp, int64(b.MaxY))
	digestcodec.WriteBool(h, w.topo.WrapsX())
	digestcodec.WriteBool(h, w.topo.WrapsY())
	digestcodec.WriteF64(h, tmp, w.ticks)
	digestcodec.WriteI64(h, tmp, w.nextWho)
	digestcodec.WriteSortedStrings(h, tmp, w.layout.prog.Globals)
	for _, v := range w.observer.vars {
		digestValue(h, tmp, v)
	}
}

func (w *World) digestPatches(h digestcodec.Writer, tmp *[8]byte) {
	for _, p := range w.patches {
		for _, v := range p.vars {
			digestValue(h, tmp, v)
		}
	}
}

func (w *World) digestTurtles(h digestcodec.Writer, tmp *[8]byte) {
	ts := w.turtles.Agents()
	digestcodec.WriteU64(h, tmp, uint64(len(ts)))
	for _, a := range sortedByID(ts) {
		t := a.(*Turtle)
		digestcodec.WriteI64(h, tmp, t.id)
		digestcodec.WriteString(h, tmp, t.breed.name)
		digestcodec.WriteF64(h, tmp, t.x)
		digestcodec.WriteF64(h, tmp, t.y)
		digestcodec.WriteF64(h, tmp, t.heading)
		for i := numTurtleBuiltins; i < len(t.vars); i++ {
			digestValue(h, tmp, t.vars[i])
		}
		for _, i := range []int{VarColor, VarShape, VarLabel, VarLabelColor, VarHidden, VarSize, VarPenSize, VarPenMode} {
			digestValue(h, tmp, t.vars[i])
		}
	}
}

func (w *World) digestLinks(h digestcodec.Writer, tmp *[8]byte) {
	ls := w.links.Agents()
	digestcodec.WriteU64(h, tmp, uint64(len(ls)))
	for _, a := range sortedByID(ls) {
		l := a.(*Link)
		digestcodec.WriteI64(h, tmp, l.id)
		digestcodec.WriteI64(h, tmp, l.end1.id)
		digestcodec.WriteI64(h, tmp, l.end2.id)
		digestcodec.WriteString(h, tmp, l.breed.name)
		digestcodec.WriteBool(h, l.Directed())
		for i := VarLinkColor; i < len(l.vars); i++ {
			if i == VarLinkBreed {
				continue
			}
			digestValue(h, tmp, l.vars[i])
		}
	}
}

// Value tags.
const (
	tagNil byte = iota
	tagNumber
	tagBool
	tagString
	tagList
	tagNobody
	tagTurtle
	tagPatch
	tagLink
	tagAgentSet
)

func digestValue(h digestcodec.Writer, tmp *[8]byte, v Value) {
	switch x := resolve(v).(type) {
	case float64:
		h.Write([]byte{tagNumber})
		digestcodec.WriteF64(h, tmp, x)
	case bool:
		h.Write([]byte{tagBool, digestcodec.BoolByte(x)})
	case string:
		h.Write([]byte{tagString})
		digestcodec.WriteString(h, tmp, x)
	case List:
		h.Write([]byte{tagList})
		digestcodec.WriteU64(h, tmp, uint64(len(x)))
		for _, e := range x {
			digestValue(h, tmp, e)
		}
	case Nobody:
		h.Write([]byte{tagNobody})
	case *Turtle:
		h.Write([]byte{tagTurtle})
		digestcodec.WriteI64(h, tmp, x.id)
	case *Patch:
		h.Write([]byte{tagPatch})
		digestcodec.WriteI64(h, tmp, int64(x.px))
		digestcodec.WriteI64(h, tmp, int64(x.py))
	case *Link:
		h.Write([]byte{tagLink})
		digestcodec.WriteI64(h, tmp, x.id)
	case *AgentSet:
		h.Write([]byte{tagAgentSet})
		digestcodec.WriteString(h, tmp, x.name)
		members := sortedByID(x.Agents())
		digestcodec.WriteU64(h, tmp, uint64(len(members)))
		for _, a := range members {
			digestValue(h, tmp, a)
		}
	default:
		h.Write([]byte{tagNil})
	}
}
