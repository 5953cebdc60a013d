package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	_ "modernc.org/sqlite"

	"personalpage/internal/persistence/kv"
)

// dbCmd lists the keys held in a sqlite store file.
func dbCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("db", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite store path (default: store.path from config)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if cfg.Store.Backend != kv.BackendSQLite {
			fmt.Fprintf(os.Stderr, "store backend is %s; pass -db to inspect a sqlite file\n", cfg.Store.Backend)
			return 2
		}
		path = cfg.Store.Path
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		return 1
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		return 1
	}
	defer db.Close()

	rows, err := db.Query(`SELECT key, length(value), updated_at FROM kv ORDER BY key`)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		return 1
	}
	defer rows.Close()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tBYTES\tUPDATED")
	for rows.Next() {
		var key, updated string
		var size int64
		if err := rows.Scan(&key, &size, &updated); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			return 1
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", key, size, updated)
	}
	_ = tw.Flush()
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		return 1
	}
	return 0
}
