package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"logosim.ai/internal/sim/rng"
	"logosim.ai/internal/sim/world"
	"logosim.ai/internal/sim/world/topology"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is every agent's variable vector keyed by variable name, plus
// what is needed to resume the world deterministically. Agent references
// inside variables are stored as tagged objects (see encodeValue).
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed               int64  `json:"seed"`
	TickRateHz         int    `json:"tick_rate_hz"`
	SnapshotEveryTicks int    `json:"snapshot_every_ticks,omitempty"`
	MaxTicks           uint64 `json:"max_ticks,omitempty"`

	Bounds  topology.Bounds `json:"bounds"`
	WrapX   bool            `json:"wrap_x"`
	WrapY   bool            `json:"wrap_y"`
	Program world.Program   `json:"program"`

	Ticks      float64         `json:"ticks"`
	NextWho    int64           `json:"next_who"`
	NextLinkID int64           `json:"next_link_id"`
	RNG        rng.StreamState `json:"rng"`

	Globals map[string]any `json:"globals"`
	Patches []PatchV1      `json:"patches"`
	Turtles []TurtleV1     `json:"turtles"`
	Links   []LinkV1       `json:"links"`
}

type PatchV1 struct {
	X    int            `json:"pxcor"`
	Y    int            `json:"pycor"`
	Vars map[string]any `json:"vars"`
}

type TurtleV1 struct {
	Who     int64          `json:"who"`
	Breed   string         `json:"breed"`
	X       float64        `json:"xcor"`
	Y       float64        `json:"ycor"`
	Heading float64        `json:"heading"`
	Vars    map[string]any `json:"vars"`
}

type LinkV1 struct {
	ID       int64          `json:"id"`
	End1     int64          `json:"end1"`
	End2     int64          `json:"end2"`
	Breed    string         `json:"breed"`
	Directed bool           `json:"directed,omitempty"`
	Vars     map[string]any `json:"vars"`
}

// FromWorld captures w. It must run on the goroutine that owns w.
func FromWorld(w *world.World) (SnapshotV1, error) {
	st := w.ExportState()
	cfg := w.Config()
	snap := SnapshotV1{
		Header:             Header{Version: Version, WorldID: st.ID, Tick: st.Steps},
		Seed:               st.Seed,
		TickRateHz:         cfg.TickRateHz,
		SnapshotEveryTicks: cfg.SnapshotEveryTicks,
		MaxTicks:           cfg.MaxTicks,
		Bounds:             st.Bounds,
		WrapX:              st.WrapX,
		WrapY:              st.WrapY,
		Program:            st.Program,
		Ticks:              st.Ticks,
		NextWho:            st.NextWho,
		NextLinkID:         st.NextLinkID,
		RNG:                st.RNG,
		Patches:            []PatchV1{},
		Turtles:            []TurtleV1{},
		Links:              []LinkV1{},
	}
	var err error
	if snap.Globals, err = encodeVars(st.Globals); err != nil {
		return snap, fmt.Errorf("globals: %w", err)
	}
	for _, p := range st.Patches {
		vars, err := encodeVars(p.Vars)
		if err != nil {
			return snap, fmt.Errorf("patch %d %d: %w", p.X, p.Y, err)
		}
		snap.Patches = append(snap.Patches, PatchV1{X: p.X, Y: p.Y, Vars: vars})
	}
	for _, t := range st.Turtles {
		vars, err := encodeVars(t.Vars)
		if err != nil {
			return snap, fmt.Errorf("turtle %d: %w", t.Who, err)
		}
		snap.Turtles = append(snap.Turtles, TurtleV1{Who: t.Who, Breed: t.Breed, X: t.X, Y: t.Y, Heading: t.Heading, Vars: vars})
	}
	for _, l := range st.Links {
		vars, err := encodeVars(l.Vars)
		if err != nil {
			return snap, fmt.Errorf("link %d: %w", l.ID, err)
		}
		snap.Links = append(snap.Links, LinkV1{ID: l.ID, End1: l.End1, End2: l.End2, Breed: l.Breed, Directed: l.Directed, Vars: vars})
	}
	return snap, nil
}

// State converts the snapshot back into portable world state.
func (s SnapshotV1) State() (world.State, error) {
	st := world.State{
		ID:         s.Header.WorldID,
		Seed:       s.Seed,
		Bounds:     s.Bounds,
		WrapX:      s.WrapX,
		WrapY:      s.WrapY,
		Program:    s.Program,
		Ticks:      s.Ticks,
		Steps:      s.Header.Tick,
		NextWho:    s.NextWho,
		NextLinkID: s.NextLinkID,
		RNG:        s.RNG,
	}
	var err error
	if st.Globals, err = decodeVars(s.Globals); err != nil {
		return st, fmt.Errorf("globals: %w", err)
	}
	for _, p := range s.Patches {
		vars, err := decodeVars(p.Vars)
		if err != nil {
			return st, fmt.Errorf("patch %d %d: %w", p.X, p.Y, err)
		}
		st.Patches = append(st.Patches, world.PatchState{X: p.X, Y: p.Y, Vars: vars})
	}
	for _, t := range s.Turtles {
		vars, err := decodeVars(t.Vars)
		if err != nil {
			return st, fmt.Errorf("turtle %d: %w", t.Who, err)
		}
		st.Turtles = append(st.Turtles, world.TurtleState{Who: t.Who, Breed: t.Breed, X: t.X, Y: t.Y, Heading: t.Heading, Vars: vars})
	}
	for _, l := range s.Links {
		vars, err := decodeVars(l.Vars)
		if err != nil {
			return st, fmt.Errorf("link %d: %w", l.ID, err)
		}
		st.Links = append(st.Links, world.LinkState{ID: l.ID, End1: l.End1, End2: l.End2, Breed: l.Breed, Directed: l.Directed, Vars: vars})
	}
	return st, nil
}

// Restore rebuilds the world. Out-of-range coordinates and values a
// variable does not accept are reported as errors.
func (s SnapshotV1) Restore() (*world.World, error) {
	st, err := s.State()
	if err != nil {
		return nil, err
	}
	return world.FromState(world.WorldConfig{
		TickRateHz:         s.TickRateHz,
		SnapshotEveryTicks: s.SnapshotEveryTicks,
		MaxTicks:           s.MaxTicks,
	}, st)
}

// Encode writes a JSON header line followed by the JSON document, both
// zstd-compressed.
func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads what Encode wrote and validates the document against the
// snapshot schema before decoding it.
func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return snap, err
	}
	if err := Validate(body); err != nil {
		return snap, err
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("json decode: %w", err)
	}
	return snap, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Path is where the snapshot for tick lives under dir.
func Path(dir string, tick uint64) string {
	return filepath.Join(dir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}
