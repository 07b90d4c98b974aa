package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "logosim.ai/internal/persistence/log"
	"logosim.ai/internal/persistence/snapshot"
	"logosim.ai/internal/sim/models"
	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/tuning"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst (resume from it instead of a fresh world)")
		ticksDir   = flag.String("ticks", "", "dir containing ticks-*.jsonl.zst to verify against (optional)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		modelName  = flag.String("model", "", "built-in model (overrides tuning.yaml)")
		steps      = flag.Uint64("steps", 100, "steps to run when not verifying tick logs")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fail("load tuning", err)
		}
		tune = tuning.Defaults()
	}
	if *modelName != "" {
		tune.Model = *modelName
	}
	m, err := models.Lookup(tune.Model)
	if err != nil {
		fail("model", err)
	}
	ctx := context.Background()
	opts := nvm.Options{MaxCallDepth: tune.MaxCallDepth}

	open := func() (*models.Runner, error) {
		if *snapPath == "" {
			r, err := models.NewWorld(m, tune.WorldConfig(), tune.Program, opts)
			if err != nil {
				return nil, err
			}
			return r, r.Setup(ctx)
		}
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			return nil, err
		}
		fmt.Printf("snapshot v%d world=%s step=%d seed=%d patches=%d turtles=%d links=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed,
			len(snap.Patches), len(snap.Turtles), len(snap.Links))
		w, err := snap.Restore()
		if err != nil {
			return nil, err
		}
		return models.NewRunner(m, w, opts), nil
	}

	if *ticksDir == "" {
		a, err := open()
		if err != nil {
			fail("open", err)
		}
		b, err := open()
		if err != nil {
			fail("open", err)
		}
		digest, err := compareRuns(ctx, a, b, *steps)
		if err != nil {
			fail("determinism", err)
		}
		fmt.Printf("deterministic: model=%s steps=%d final_step=%d digest=%s\n", m.Name, *steps, a.W.Steps(), digest)
		return
	}

	r, err := open()
	if err != nil {
		fail("open", err)
	}
	files, err := listTickFiles(*ticksDir)
	if err != nil {
		fail("list ticks", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick files found in", *ticksDir)
		os.Exit(1)
	}
	start := r.W.Steps()
	verifyFrom := *fromTick
	if verifyFrom == 0 {
		verifyFrom = start
	}
	checked, err := replayLogs(ctx, r, files, verifyFrom, *toTick)
	if err != nil {
		fail("replay", err)
	}
	fmt.Printf("replay ok: checked=%d ticks (from step=%d)\n", checked, start)
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

// compareRuns steps a and b in lockstep and fails at the first step whose
// digests differ.
func compareRuns(ctx context.Context, a, b *models.Runner, steps uint64) (string, error) {
	var last string
	for i := uint64(0); i < steps; i++ {
		n, da, err := a.W.StepOnce(ctx, a.Step)
		if err != nil {
			return "", fmt.Errorf("run a step %d: %w", n, err)
		}
		_, db, err := b.W.StepOnce(ctx, b.Step)
		if err != nil {
			return "", fmt.Errorf("run b step %d: %w", n, err)
		}
		if da != db {
			return "", fmt.Errorf("digest mismatch at step %d: %s != %s", n, da, db)
		}
		last = da
	}
	return last, nil
}

func listTickFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// replayLogs steps r once per logged tick and compares digests from
// verifyFrom on. Entries before the runner's current step are skipped.
func replayLogs(ctx context.Context, r *models.Runner, files []string, verifyFrom, toTick uint64) (uint64, error) {
	var checked uint64
	for _, path := range files {
		entries, err := persistlog.ReadTicks(path)
		if err != nil {
			return checked, err
		}
		for _, e := range entries {
			if e.Tick < r.W.Steps() {
				continue
			}
			if toTick != 0 && e.Tick > toTick {
				return checked, nil
			}
			if e.Tick != r.W.Steps() {
				return checked, fmt.Errorf("tick gap: want=%d got=%d (file=%s)", r.W.Steps(), e.Tick, filepath.Base(path))
			}
			n, digest, err := r.W.StepOnce(ctx, r.Step)
			if err != nil {
				return checked, fmt.Errorf("step %d: %w", n, err)
			}
			if n >= verifyFrom {
				checked++
				if digest != e.Digest {
					return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", n, digest, e.Digest)
				}
			}
		}
	}
	return checked, nil
}
