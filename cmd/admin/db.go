package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type dbQuery struct {
	name  string
	from  uint64
	who   int64
	limit int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	from := fs.Uint64("from", 0, "first tick (ticks)")
	who := fs.Int64("who", -1, "turtle who number (lifecycle)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := dbQuery{name: "snapshots", from: *from, who: *who, limit: *limit}
	if fs.NArg() > 0 {
		q.name = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(os.Stdout, db, q); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] snapshots|ticks [-from T]|lifecycle -who N|config")
		os.Exit(1)
	}
}

// runQuery prints one JSON object per row.
func runQuery(out io.Writer, db *sql.DB, q dbQuery) error {
	if q.limit <= 0 {
		q.limit = 20
	}
	switch q.name {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,seed,patches,turtles,links FROM snapshots ORDER BY tick DESC LIMIT ?`, q.limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick    int64  `json:"tick"`
				Path    string `json:"path"`
				Seed    int64  `json:"seed"`
				Patches int    `json:"patches"`
				Turtles int    `json:"turtles"`
				Links   int    `json:"links"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Patches, &r.Turtles, &r.Links); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick,model_ticks,digest,turtles,links,born,died FROM ticks WHERE tick>=? ORDER BY tick LIMIT ?`, q.from, q.limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick    int64    `json:"tick"`
				Ticks   *float64 `json:"ticks,omitempty"`
				Digest  string   `json:"digest"`
				Turtles int      `json:"turtles"`
				Links   int      `json:"links"`
				Born    int      `json:"born"`
				Died    int      `json:"died"`
			}
			var mt sql.NullFloat64
			if err := rows.Scan(&r.Tick, &mt, &r.Digest, &r.Turtles, &r.Links, &r.Born, &r.Died); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if mt.Valid {
				r.Ticks = &mt.Float64
			}
			printJSON(out, r)
		}
		return rows.Err()

	case "lifecycle":
		if q.who < 0 {
			return fmt.Errorf("lifecycle needs -who")
		}
		rows, err := db.Query(`SELECT tick,event FROM lifecycle WHERE who=? ORDER BY tick, event LIMIT ?`, q.who, q.limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Who   int64  `json:"who"`
				Tick  int64  `json:"tick"`
				Event string `json:"event"`
			}
			if err := rows.Scan(&r.Tick, &r.Event); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			r.Who = q.who
			printJSON(out, r)
		}
		return rows.Err()

	case "config":
		var r struct {
			Digest    string `json:"digest"`
			UpdatedAt string `json:"updated_at"`
			JSON      string `json:"json"`
		}
		if err := db.QueryRow(`SELECT digest,updated_at,json FROM config WHERE name='tuning'`).Scan(&r.Digest, &r.UpdatedAt, &r.JSON); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		printJSON(out, r)
		return nil

	default:
		return fmt.Errorf("unknown query: %s", q.name)
	}
}
