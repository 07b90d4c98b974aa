package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	persistlog "logosim.ai/internal/persistence/log"
	"logosim.ai/internal/sim/models"
	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/tuning"
	"logosim.ai/internal/sim/world"
)

func runner(t *testing.T, name string) *models.Runner {
	t.Helper()
	tune := tuning.Defaults()
	tune.MinPxcor, tune.MaxPxcor, tune.MinPycor, tune.MaxPycor = -7, 7, -7, 7
	m, err := models.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	r, err := models.NewWorld(m, tune.WorldConfig(), tune.Program, nvm.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Setup(context.Background()); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCompareRuns(t *testing.T) {
	for _, name := range models.Names() {
		d, err := compareRuns(context.Background(), runner(t, name), runner(t, name), 5)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(d) != 64 {
			t.Fatalf("%s digest=%q", name, d)
		}
	}
}

func recordTicks(t *testing.T, steps int) string {
	t.Helper()
	dir := t.TempDir()
	r := runner(t, "wander")
	tl := persistlog.NewTickLogger(dir)
	r.W.OnTick(func(e world.TickLogEntry) {
		if err := tl.WriteTick(e); err != nil {
			t.Errorf("write: %v", err)
		}
	})
	for i := 0; i < steps; i++ {
		if _, _, err := r.W.StepOnce(context.Background(), r.Step); err != nil {
			t.Fatal(err)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "ticks")
}

func TestReplayLogs_MatchesRecordedRun(t *testing.T) {
	files, err := listTickFiles(recordTicks(t, 6))
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	checked, err := replayLogs(context.Background(), runner(t, "wander"), files, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if checked != 4 {
		t.Fatalf("checked=%d want 4", checked)
	}

	checked, err = replayLogs(context.Background(), runner(t, "wander"), files, 0, 2)
	if err != nil || checked != 3 {
		t.Fatalf("bounded replay checked=%d err=%v", checked, err)
	}
}

func TestReplayLogs_DetectsDivergence(t *testing.T) {
	files, err := listTickFiles(recordTicks(t, 3))
	if err != nil {
		t.Fatal(err)
	}
	_, err = replayLogs(context.Background(), runner(t, "orbit"), files, 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("err=%v", err)
	}
}
