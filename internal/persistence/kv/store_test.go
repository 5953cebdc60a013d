package kv

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("get missing: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "posts", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, "posts")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[{"id":"a"}]` {
		t.Fatalf("get=%q", got)
	}
	if err := s.Set(ctx, "posts", []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = s.Get(ctx, "posts")
	if string(got) != `[]` {
		t.Fatalf("after overwrite get=%q", got)
	}
	if err := s.Delete(ctx, "posts"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "posts"); err != nil {
		t.Fatalf("delete twice: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "posts"); ok {
		t.Fatalf("expected key gone after delete")
	}
	if err := s.Set(ctx, " ", []byte("x")); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty key err=%v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	m := NewMemory()
	buf := []byte("abc")
	_ = m.Set(context.Background(), "k", buf)
	buf[0] = 'z'
	got, _, _ := m.Get(context.Background(), "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}

func TestFileStore(t *testing.T) {
	s, err := OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := s.Set(context.Background(), "hw1_posts_v1", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("expected exactly one file, got %d", len(ents))
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exerciseStore(t, s)

	if err := s.Set(context.Background(), "hw1_profile_v1", []byte(`{"name":"N"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var v string
	if err := db.QueryRow(`SELECT value FROM kv WHERE key='hw1_profile_v1'`).Scan(&v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if v != `{"name":"N"}` {
		t.Fatalf("row value=%q", v)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PP_TEST_REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), RedisConfig{Addr: addr, Prefix: "pp-test:"})
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PP_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "etcd"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err=%v want ErrUnknownBackend", err)
	}
}

func TestOpen_FileBackend(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: " FILE ", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("got %T want *FileStore", s)
	}
}
