package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"logosim.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "state":
			adminCmd("state", "GET", "/admin/v1/state", os.Args[2:])
			return
		case "snapshot":
			adminCmd("snapshot", "POST", "/admin/v1/snapshot", os.Args[2:])
			return
		case "halt":
			adminCmd("halt", "POST", "/admin/v1/halt", os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	who := fs.Int64("turtle", -1, "print one turtle's variables")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin inspect [-turtle WHO] PATH.snap.zst")
		os.Exit(2)
	}
	if err := inspect(os.Stdout, fs.Arg(0), *who); err != nil {
		fmt.Fprintln(os.Stderr, "inspect:", err)
		os.Exit(1)
	}
}

type snapshotSummary struct {
	WorldID string         `json:"world_id"`
	Step    uint64         `json:"step"`
	Ticks   float64        `json:"ticks"`
	Seed    int64          `json:"seed"`
	Patches int            `json:"patches"`
	Turtles int            `json:"turtles"`
	Links   int            `json:"links"`
	Breeds  map[string]int `json:"breeds"`
	Globals map[string]any `json:"globals,omitempty"`
}

// inspect reads and validates a snapshot, then prints either a summary or
// the variables of turtle who.
func inspect(out io.Writer, path string, who int64) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if who >= 0 {
		for _, t := range snap.Turtles {
			if t.Who == who {
				printJSON(out, t)
				return nil
			}
		}
		return fmt.Errorf("no turtle %d at step %d", who, snap.Header.Tick)
	}
	sum := snapshotSummary{
		WorldID: snap.Header.WorldID,
		Step:    snap.Header.Tick,
		Ticks:   snap.Ticks,
		Seed:    snap.Seed,
		Patches: len(snap.Patches),
		Turtles: len(snap.Turtles),
		Links:   len(snap.Links),
		Breeds:  map[string]int{},
		Globals: snap.Globals,
	}
	for _, t := range snap.Turtles {
		sum.Breeds[t.Breed]++
	}
	for _, l := range snap.Links {
		sum.Breeds[l.Breed]++
	}
	printJSON(out, sum)
	return nil
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
