// Package journal records every change made to the page as compressed JSONL.
//
// Entries are filed by the UTC hour of their own timestamp into
// `journal-YYYY-MM-DD-HH.jsonl.zst`. Each entry is flushed as its own zstd
// block, so a file stays readable up to the last recorded change even if the
// process dies. Reopening an hour appends a new frame to the same file.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

type Action string

const (
	ActionPostCreate  Action = "POST_CREATE"
	ActionPostDelete  Action = "POST_DELETE"
	ActionProfileSave Action = "PROFILE_SAVE"
	ActionRestore     Action = "RESTORE"
)

type Entry struct {
	TS     string `json:"ts"`
	Action Action `json:"action"`
	PostID string `json:"post_id,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

const (
	filePrefix = "journal-"
	fileSuffix = ".jsonl.zst"
	hourLayout = "2006-01-02-15"
)

// FileName is the journal file holding entries of the hour containing t.
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(hourLayout) + fileSuffix
}

// fileHour parses the hour back out of a journal file name.
func fileHour(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	h, err := time.Parse(hourLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil {
		return time.Time{}, false
	}
	return h, true
}

// hourFile is the one journal file currently open for appending.
type hourFile struct {
	hour time.Time
	f    *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

func (h *hourFile) close() error {
	err := h.zw.Close()
	if cerr := h.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Journal is safe for concurrent use. A nil *Journal discards entries.
type Journal struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	cur *hourFile
}

func New(dir string) *Journal {
	return &Journal{dir: dir, now: time.Now}
}

// Record stamps e with the current time unless it already carries one, and
// appends it to the file of that time's hour.
func (j *Journal) Record(e Entry) error {
	if j == nil {
		return nil
	}
	at := j.now().UTC()
	if e.TS == "" {
		e.TS = at.Format(time.RFC3339Nano)
	} else if t, err := time.Parse(time.RFC3339Nano, e.TS); err == nil {
		at = t.UTC()
	} else {
		return fmt.Errorf("journal: entry timestamp %q: %w", e.TS, err)
	}
	hour := at.Truncate(time.Hour)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cur == nil || !j.cur.hour.Equal(hour) {
		if err := j.openLocked(hour); err != nil {
			return err
		}
	}
	if err := j.cur.enc.Encode(e); err != nil {
		return err
	}
	return j.cur.zw.Flush()
}

func (j *Journal) openLocked(hour time.Time) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(j.dir, FileName(hour)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.cur = &hourFile{hour: hour, f: f, zw: zw, enc: json.NewEncoder(zw)}
	return nil
}

func (j *Journal) closeLocked() error {
	if j.cur == nil {
		return nil
	}
	err := j.cur.close()
	j.cur = nil
	return err
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

// Files lists journal files in dir, oldest first.
func Files(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if _, ok := fileHour(e.Name()); !ok {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ReadSince returns the entries recorded at or after since, oldest file
// first. Files whose whole hour lies before since are not opened.
func ReadSince(dir string, since time.Time) ([]Entry, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, path := range files {
		if h, _ := fileHour(filepath.Base(path)); !since.IsZero() && h.Add(time.Hour).Before(since) {
			continue
		}
		entries, err := ReadFile(path)
		for _, e := range entries {
			if since.IsZero() {
				out = append(out, e)
				continue
			}
			if t, perr := time.Parse(time.RFC3339Nano, e.TS); perr == nil && !t.Before(since) {
				out = append(out, e)
			}
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// ReadFile decodes every entry in one journal file. A torn final line, left by
// a process that died mid-write, ends the read without an error.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	br := bufio.NewReader(dec)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			var e Entry
			if uerr := json.Unmarshal(line, &e); uerr != nil {
				return out, fmt.Errorf("%s: %w", filepath.Base(path), uerr)
			}
			out = append(out, e)
		}
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
