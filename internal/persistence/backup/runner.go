// Package backup takes periodic compressed copies of the page's store keys,
// archives the first copy of each day and prunes old copies.
package backup

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"personalpage/internal/persistence/archive"
	"personalpage/internal/persistence/kv"
	"personalpage/internal/persistence/snapshot"
)

type Runner struct {
	Store      kv.Store
	PostsKey   string
	ProfileKey string
	Dir        string
	// Keep is how many recent backups survive pruning; 0 keeps all.
	Keep   int
	Now    func() time.Time
	Logger *log.Logger

	mu       sync.Mutex
	last     time.Time
	failures uint64
	total    uint64
}

type Result struct {
	Path     string
	Archived string
	Pruned   int
}

// Run writes one backup. Runs are serialised.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	at := now()
	b, err := snapshot.Capture(ctx, r.Store, r.PostsKey, r.ProfileKey, at)
	if err != nil {
		r.failures++
		return Result{}, err
	}
	res := Result{Path: filepath.Join(r.Dir, snapshot.FileName(at))}
	if err := snapshot.Write(res.Path, b); err != nil {
		r.failures++
		return Result{}, err
	}
	r.total++
	r.last = at

	if _, archived, ok, err := archive.ArchiveDailySnapshot(r.Dir, res.Path, b); err != nil {
		r.printf("archive daily snapshot: %v", err)
	} else if ok {
		res.Archived = archived
	}
	if n, err := snapshot.Prune(r.Dir, r.Keep); err != nil {
		r.printf("prune backups: %v", err)
	} else {
		res.Pruned = n
	}
	return res, nil
}

// Loop runs a backup every interval until ctx is done. Non-positive
// intervals disable it.
func (r *Runner) Loop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := r.Run(ctx)
			if err != nil {
				r.printf("backup failed: %v", err)
				continue
			}
			r.printf("backup written path=%s archived=%t pruned=%d", res.Path, res.Archived != "", res.Pruned)
		}
	}
}

type Stats struct {
	Total      uint64
	Failures   uint64
	LastUnix   int64
	Configured bool
}

func (r *Runner) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{Total: r.total, Failures: r.failures, Configured: true}
	if !r.last.IsZero() {
		s.LastUnix = r.last.Unix()
	}
	return s
}

func (r *Runner) printf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
