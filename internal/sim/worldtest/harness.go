// Package worldtest drives a model through the same persistence pipeline the
// server wires up (tick log, SQLite index, periodic snapshots) so tests can
// check the pieces against each other without a network listener.
package worldtest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"logosim.ai/internal/persistence/indexdb"
	persistlog "logosim.ai/internal/persistence/log"
	"logosim.ai/internal/persistence/snapshot"
	"logosim.ai/internal/sim/models"
	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/world"
)

// Harness is a small black-box helper around a models.Runner:
// - Step()/StepFor() advance the world through StepOnce
// - every tick goes to the JSONL log and the index
// - a snapshot is written every cfg.SnapshotEveryTicks steps
//
// It only uses exported APIs so tests can live outside the world package.
type Harness struct {
	T   *testing.T
	Dir string
	R   *models.Runner
	Idx *indexdb.SQLiteIndex

	// Digests holds one digest per step taken through the harness.
	Digests   []string
	Snapshots []string

	log *persistlog.TickLogger
}

func NewHarness(t *testing.T, model string, cfg world.WorldConfig) *Harness {
	t.Helper()

	m, err := models.Lookup(model)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	r, err := models.NewWorld(m, cfg, world.Program{}, nvm.Options{})
	if err != nil {
		t.Fatalf("models.NewWorld: %v", err)
	}
	if err := r.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return Attach(t, r, t.TempDir())
}

// Attach wires the pipeline onto an existing runner, for example one resumed
// from a snapshot.
func Attach(t *testing.T, r *models.Runner, dir string) *Harness {
	t.Helper()

	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "world.sqlite"))
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	h := &Harness{T: t, Dir: dir, R: r, Idx: idx, log: persistlog.NewTickLogger(dir)}
	t.Cleanup(h.Close)

	every := uint64(r.W.Config().SnapshotEveryTicks)
	r.W.OnTick(func(e world.TickLogEntry) {
		h.Digests = append(h.Digests, e.Digest)
		if err := h.log.WriteTick(e); err != nil {
			t.Errorf("tick log: %v", err)
		}
		_ = h.Idx.WriteTick(e)
		if every == 0 || (e.Tick+1)%every != 0 {
			return
		}
		snap, err := snapshot.FromWorld(r.W)
		if err != nil {
			t.Errorf("snapshot export: %v", err)
			return
		}
		path := snapshot.Path(dir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			t.Errorf("snapshot write: %v", err)
			return
		}
		h.Idx.RecordSnapshot(path, snap)
		h.Snapshots = append(h.Snapshots, path)
	})
	return h
}

// Step advances one step and returns its digest.
func (h *Harness) Step() string {
	h.T.Helper()
	_, d, err := h.R.W.StepOnce(context.Background(), h.R.Step)
	if err != nil {
		h.T.Fatalf("step %d: %v", h.R.W.Steps(), err)
	}
	return d
}

func (h *Harness) StepFor(n int) string {
	h.T.Helper()
	var d string
	for i := 0; i < n; i++ {
		d = h.Step()
	}
	return d
}

// Sync flushes the index queue.
func (h *Harness) Sync() {
	h.T.Helper()
	if err := h.Idx.Sync(context.Background()); err != nil {
		h.T.Fatalf("index sync: %v", err)
	}
}

// LoggedTicks closes the tick log and reads every file back in order.
func (h *Harness) LoggedTicks() []world.TickLogEntry {
	h.T.Helper()
	if err := h.log.Close(); err != nil {
		h.T.Fatalf("close tick log: %v", err)
	}
	dir := filepath.Join(h.Dir, "ticks")
	ents, err := os.ReadDir(dir)
	if err != nil {
		h.T.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, e := range ents {
		if strings.HasSuffix(e.Name(), ".jsonl.zst") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var out []world.TickLogEntry
	for _, n := range names {
		es, err := persistlog.ReadTicks(filepath.Join(dir, n))
		if err != nil {
			h.T.Fatalf("read ticks: %v", err)
		}
		out = append(out, es...)
	}
	return out
}

func (h *Harness) Close() {
	_ = h.log.Close()
	_ = h.Idx.Close()
}
