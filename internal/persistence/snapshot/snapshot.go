// Package snapshot writes compressed point-in-time copies of the page's two
// store keys and restores them.
package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"personalpage/internal/persistence/kv"
)

const (
	Version = 1
	Ext     = ".snap.zst"
)

var ErrVersion = errors.New("snapshot: unsupported version")

type Header struct {
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	PostsKey   string `json:"posts_key"`
	ProfileKey string `json:"profile_key"`
}

// Backup carries the stored documents byte for byte. A nil document means the
// key was absent when the backup was taken.
type Backup struct {
	Header Header `json:"header"`

	Posts   json.RawMessage `json:"posts,omitempty"`
	Profile json.RawMessage `json:"profile,omitempty"`
}

// Capture reads both keys from store.
func Capture(ctx context.Context, store kv.Store, postsKey, profileKey string, now time.Time) (Backup, error) {
	b := Backup{Header: Header{
		Version:    Version,
		CreatedAt:  now.UTC().Format(time.RFC3339Nano),
		PostsKey:   postsKey,
		ProfileKey: profileKey,
	}}
	raw, ok, err := store.Get(ctx, postsKey)
	if err != nil {
		return b, fmt.Errorf("capture %s: %w", postsKey, err)
	}
	if ok {
		b.Posts = raw
	}
	raw, ok, err = store.Get(ctx, profileKey)
	if err != nil {
		return b, fmt.Errorf("capture %s: %w", profileKey, err)
	}
	if ok {
		b.Profile = raw
	}
	return b, nil
}

// Restore writes the backup's documents back under its keys. Keys that were
// absent at capture time are deleted.
func Restore(ctx context.Context, store kv.Store, b Backup) error {
	if b.Header.Version != Version {
		return ErrVersion
	}
	docs := []struct {
		key string
		raw json.RawMessage
	}{
		{b.Header.PostsKey, b.Posts},
		{b.Header.ProfileKey, b.Profile},
	}
	for _, d := range docs {
		var err error
		if d.raw == nil {
			err = store.Delete(ctx, d.key)
		} else {
			err = store.Set(ctx, d.key, d.raw)
		}
		if err != nil {
			return fmt.Errorf("restore %s: %w", d.key, err)
		}
	}
	return nil
}

func FileName(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z") + Ext
}

// Write stores b at path as a JSON header line followed by a gob body, the
// whole stream zstd-compressed. The file appears atomically.
func Write(path string, b Backup) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(b.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&b); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Read(path string) (Backup, error) {
	var b Backup
	f, err := os.Open(path)
	if err != nil {
		return b, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return b, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return b, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return b, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return b, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&b); err != nil {
		return b, fmt.Errorf("gob decode: %w", err)
	}
	return b, nil
}

// ReadHeader decodes only the header line, for listings.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	err = json.Unmarshal(line, &h)
	return h, err
}

// List returns the backup files in dir, oldest first. A missing dir is empty.
func List(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Prune keeps the newest keep backups in dir. keep <= 0 keeps everything.
func Prune(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	files, err := List(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(files)-removed > keep {
		if err := os.Remove(files[removed]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
