package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"personalpage/internal/config"
	"personalpage/internal/persistence/backup"
	"personalpage/internal/persistence/journal"
	"personalpage/internal/persistence/kv"
	"personalpage/internal/persistence/snapshot"
	"personalpage/internal/posts"
	"personalpage/internal/render"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "list":
			os.Exit(listCmd(os.Args[2:], os.Stdout))
		case "backup":
			os.Exit(backupCmd(os.Args[2:], os.Stdout))
		case "restore":
			os.Exit(restoreCmd(os.Args[2:], os.Stdout))
		case "posts":
			os.Exit(postsCmd(os.Args[2:], os.Stdout))
		case "journal":
			os.Exit(journalCmd(os.Args[2:], os.Stdout))
		case "db":
			os.Exit(dbCmd(os.Args[2:], os.Stdout))
		case "remote-backup":
			os.Exit(remoteBackupCmd(os.Args[2:], os.Stdout))
		}
	}
	os.Exit(listCmd(os.Args[1:], os.Stdout))
}

func loadConfig(fs *flag.FlagSet, args []string) (config.Config, error) {
	path := fs.String("config", "./configs/page.yaml", "page config path (missing file means built-in defaults)")
	backend := fs.String("store", "", "store backend override")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	var err error
	if _, statErr := os.Stat(*path); statErr != nil {
		cfg, err = config.Load("")
	} else {
		cfg, err = config.Load(*path)
	}
	if err != nil {
		return cfg, err
	}
	if s := strings.TrimSpace(*backend); s != "" {
		cfg.Store.Backend = s
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func openStore(cfg config.Config) (kv.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return kv.Open(ctx, cfg.StoreConfig())
}

func listCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	dir := fs.String("dir", "", "backup directory (default: backup.dir from config)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	if *dir == "" {
		*dir = cfg.Backup.Dir
	}
	files, err := snapshot.List(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		return 1
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCREATED\tSIZE")
	for _, f := range files {
		h, err := snapshot.ReadHeader(f)
		created := h.CreatedAt
		if err != nil {
			created = "unreadable: " + err.Error()
		}
		var size int64
		if st, err := os.Stat(f); err == nil {
			size = st.Size()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", filepath.Base(f), created, size)
	}
	_ = tw.Flush()
	return 0
}

func backupCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer store.Close()

	r := &backup.Runner{
		Store:      store,
		PostsKey:   cfg.Keys.Posts,
		ProfileKey: cfg.Keys.Profile,
		Dir:        cfg.Backup.Dir,
		Keep:       cfg.Backup.Keep,
	}
	res, err := r.Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "backup:", err)
		return 1
	}
	fmt.Fprintf(out, "wrote %s\n", res.Path)
	if res.Archived != "" {
		fmt.Fprintf(out, "archived %s\n", res.Archived)
	}
	return 0
}

func restoreCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	snapPath := fs.String("snapshot", "", "backup file to restore (default: latest in backup.dir)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	path := strings.TrimSpace(*snapPath)
	if path == "" {
		files, err := snapshot.List(cfg.Backup.Dir)
		if err != nil || len(files) == 0 {
			fmt.Fprintln(os.Stderr, "no backup found; provide -snapshot or run a backup first")
			return 2
		}
		path = files[len(files)-1]
	}
	b, err := snapshot.Read(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read backup:", err)
		return 1
	}

	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer store.Close()

	if err := snapshot.Restore(context.Background(), store, b); err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		return 1
	}
	jr := journal.New(cfg.Journal.Dir)
	if err := jr.Record(journal.Entry{Action: journal.ActionRestore, Detail: filepath.Base(path)}); err != nil {
		fmt.Fprintln(os.Stderr, "journal:", err)
	}
	_ = jr.Close()
	fmt.Fprintf(out, "restored %s (created %s)\n", filepath.Base(path), b.Header.CreatedAt)
	return 0
}

func postsCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer store.Close()

	list := posts.SortNewestFirst(posts.NewRepository(store, posts.Options{Key: cfg.Keys.Posts}).List(context.Background()))
	if *asJSON {
		if list == nil {
			list = []posts.Post{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(list)
		return 0
	}
	if len(list) == 0 {
		fmt.Fprintln(out, render.LabelsFor(cfg.Locale).Empty)
		return 0
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, render.FormatDate(cfg.Locale, p.CreatedAt, cfg.Location()), p.Title)
	}
	_ = tw.Flush()
	return 0
}

func journalCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	action := fs.String("action", "", "only show this action (POST_CREATE|POST_DELETE|PROFILE_SAVE|RESTORE)")
	since := fs.Duration("since", 0, "only show entries newer than this (e.g. 24h; 0 = everything)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	var from time.Time
	if *since > 0 {
		from = time.Now().Add(-*since)
	}
	entries, err := journal.ReadSince(cfg.Journal.Dir, from)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
	}
	enc := json.NewEncoder(out)
	for _, e := range entries {
		if *action != "" && string(e.Action) != *action {
			continue
		}
		_ = enc.Encode(e)
	}
	if err != nil {
		return 1
	}
	return 0
}
