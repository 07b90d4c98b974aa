package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	persistlog "logosim.ai/internal/persistence/log"
	"logosim.ai/internal/persistence/snapshot"
	"logosim.ai/internal/sim/models"
	"logosim.ai/internal/sim/nvm"
	"logosim.ai/internal/sim/tuning"
	"logosim.ai/internal/sim/world"
	"logosim.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		modelName  = flag.String("model", "", "built-in model to run (overrides tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (ticks + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *modelName != "" {
		tune.Model = *modelName
	}
	m, err := models.Lookup(tune.Model)
	if err != nil {
		logger.Fatalf("model: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", tune.WorldID)
	_ = os.MkdirAll(worldDir, 0o755)

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	// Optional read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfig(tune); err != nil {
			logger.Printf("index backend: upsert config: %v", err)
		}
	}

	mirror, err := openSnapshotMirror(*dataDir, logger)
	if err != nil {
		logger.Fatalf("snapshot mirror: %v", err)
	}
	defer mirror.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := openWorld(ctx, tune, m, snapshotToLoad)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w, vm := rt.W, rt.VM
	if snapshotToLoad != "" {
		logger.Printf("resumed from snapshot=%s step=%d", filepath.Base(snapshotToLoad), w.Steps())
	} else {
		logger.Printf("fresh world id=%s seed=%d model=%s topology=%s", tune.WorldID, tune.Seed, m.Name, tune.Topology())
	}

	// Halt the running ask at the next command boundary, then stop the loop.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("%s: halting", sig)
			vm.Halt()
			cancel()
		case <-ctx.Done():
		}
	}()

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()

	var turtles, links atomic.Int64
	w.OnTick(func(e world.TickLogEntry) {
		turtles.Store(int64(e.Turtles))
		links.Store(int64(e.Links))
		if err := tickLog.WriteTick(e); err != nil {
			logger.Printf("tick log: %v", err)
		}
		_ = idx.WriteTick(e)
	})

	// Snapshot writer. Capture happens on the loop goroutine, encoding and
	// disk IO off it.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	every := uint64(w.Config().SnapshotEveryTicks)
	w.OnTick(func(e world.TickLogEntry) {
		if every == 0 || (e.Tick+1)%every != 0 {
			return
		}
		snap, err := snapshot.FromWorld(w)
		if err != nil {
			logger.Printf("snapshot export: %v", err)
			return
		}
		select {
		case snapCh <- snap:
		default:
			logger.Printf("snapshot writer busy; skipped step %d", snap.Header.Tick)
		}
	})
	writeSnap := func(snap snapshot.SnapshotV1) (string, error) {
		path := snapshot.Path(worldDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			return "", err
		}
		idx.RecordSnapshot(path, snap)
		mirror.Enqueue(path)
		return path, nil
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				if _, err := writeSnap(snap); err != nil {
					logger.Printf("snapshot write: %v", err)
				}
			}
		}
	}()

	obsSrv := observer.NewServer(w, logger)

	go func() {
		defer cancel()
		if err := w.Run(ctx, rt.Step); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
			return
		}
		logger.Printf("world stopped at step %d", w.Steps())
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		id := tune.WorldID

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP logosim_world_step Completed world steps.\n")
		fmt.Fprintf(rw, "# TYPE logosim_world_step counter\n")
		fmt.Fprintf(rw, "logosim_world_step{world=%q} %d\n", id, w.Steps())

		fmt.Fprintf(rw, "# HELP logosim_world_turtles Live turtles after the last step.\n")
		fmt.Fprintf(rw, "# TYPE logosim_world_turtles gauge\n")
		fmt.Fprintf(rw, "logosim_world_turtles{world=%q} %d\n", id, turtles.Load())

		fmt.Fprintf(rw, "# HELP logosim_world_links Live links after the last step.\n")
		fmt.Fprintf(rw, "# TYPE logosim_world_links gauge\n")
		fmt.Fprintf(rw, "logosim_world_links{world=%q} %d\n", id, links.Load())

		fmt.Fprintf(rw, "# HELP logosim_observer_sessions Connected observers.\n")
		fmt.Fprintf(rw, "# TYPE logosim_observer_sessions gauge\n")
		fmt.Fprintf(rw, "logosim_observer_sessions{world=%q} %d\n", id, obsSrv.Sessions())

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP logosim_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE logosim_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "logosim_index_queue_depth{world=%q} %d\n", id, st.QueueDepth)
			fmt.Fprintf(rw, "# HELP logosim_index_dropped_total Index writes dropped under load.\n")
			fmt.Fprintf(rw, "# TYPE logosim_index_dropped_total counter\n")
			fmt.Fprintf(rw, "logosim_index_dropped_total{world=%q,kind=%q} %d\n", id, "tick", st.DropTickTotal)
			fmt.Fprintf(rw, "logosim_index_dropped_total{world=%q,kind=%q} %d\n", id, "snapshot", st.DropSnapshotTotal)
		}
		if mirror != nil {
			st := mirror.Stats()
			fmt.Fprintf(rw, "# HELP logosim_mirror_queue_depth Snapshot uploads waiting.\n")
			fmt.Fprintf(rw, "# TYPE logosim_mirror_queue_depth gauge\n")
			fmt.Fprintf(rw, "logosim_mirror_queue_depth{world=%q} %d\n", id, st.QueueDepth)
			fmt.Fprintf(rw, "# HELP logosim_mirror_uploads_total Snapshot uploads by result.\n")
			fmt.Fprintf(rw, "# TYPE logosim_mirror_uploads_total counter\n")
			fmt.Fprintf(rw, "logosim_mirror_uploads_total{world=%q,result=%q} %d\n", id, "ok", st.UploadSuccessTotal)
			fmt.Fprintf(rw, "logosim_mirror_uploads_total{world=%q,result=%q} %d\n", id, "fail", st.UploadFailTotal)
			fmt.Fprintf(rw, "logosim_mirror_uploads_total{world=%q,result=%q} %d\n", id, "dropped", st.DroppedTotal)
		}
	})

	enableAdminHTTP := envBool("LOGOSIM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("LOGOSIM_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", localOnly(func(rw http.ResponseWriter, r *http.Request) {
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			var resp struct {
				WorldID string   `json:"world_id"`
				Model   string   `json:"model"`
				Step    uint64   `json:"step"`
				Ticks   *float64 `json:"ticks"`
				Turtles int      `json:"turtles"`
				Links   int      `json:"links"`
				Ties    int      `json:"ties"`
				Jobs    int      `json:"jobs"`
				Digest  string   `json:"digest"`
			}
			err := w.Do(ctx2, func(w *world.World) {
				resp.WorldID, resp.Model, resp.Step = w.ID(), m.Name, w.Steps()
				if t, err := w.Ticks(); err == nil {
					resp.Ticks = &t
				}
				resp.Turtles, resp.Links, resp.Ties = w.Turtles().Count(), w.Links().Count(), w.TieCount()
				resp.Jobs = vm.Active()
				resp.Digest = w.StateDigest()
			})
			writeJSON(rw, resp, err)
		}))
		mux.HandleFunc("/admin/v1/snapshot", localOnly(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			var snap snapshot.SnapshotV1
			var exportErr error
			if err := w.Do(ctx2, func(w *world.World) { snap, exportErr = snapshot.FromWorld(w) }); err != nil {
				writeJSON(rw, nil, err)
				return
			}
			if exportErr != nil {
				writeJSON(rw, nil, exportErr)
				return
			}
			path, err := writeSnap(snap)
			writeJSON(rw, map[string]any{"ok": err == nil, "tick": snap.Header.Tick, "path": path}, err)
		}))
		mux.HandleFunc("/admin/v1/halt", localOnly(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			logger.Printf("halt requested by %s", r.RemoteAddr)
			vm.Halt()
			writeJSON(rw, map[string]any{"ok": true}, nil)
		}))
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (LOGOSIM_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (LOGOSIM_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// openWorld resumes from snapPath when set, otherwise builds a fresh world
// from tune and runs the model's setup.
func openWorld(ctx context.Context, tune tuning.Tuning, m models.Model, snapPath string) (*models.Runner, error) {
	opts := nvm.Options{MaxCallDepth: tune.MaxCallDepth}
	if snapPath == "" {
		r, err := models.NewWorld(m, tune.WorldConfig(), tune.Program, opts)
		if err != nil {
			return nil, err
		}
		if err := r.Setup(ctx); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
		return r, nil
	}

	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != tune.WorldID {
		return nil, fmt.Errorf("snapshot world id mismatch: tuning=%s snap=%s", tune.WorldID, snap.Header.WorldID)
	}
	w, err := snap.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return models.NewRunner(m, w, opts), nil
}

func localOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, v any, err error) {
	rw.Header().Set("Content-Type", "application/json")
	if err != nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	_ = json.NewEncoder(rw).Encode(v)
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
