// Package posts is the repository for user-authored posts.
//
// The whole list lives under one store key as a JSON array in insertion order,
// newest first. Display order is by CreatedAt, see SortNewestFirst.
package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"personalpage/internal/persistence/kv"
	"personalpage/internal/protocol"
)

const DefaultKey = "hw1_posts_v1"

var (
	// ErrPersist wraps any failure to read or write the backing store during a mutation.
	ErrPersist = errors.New("posts: storage unavailable")
	// ErrInvalid is returned when title or content is blank.
	ErrInvalid = errors.New("posts: title and content are required")
)

type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"` // unix millis
}

func (p Post) Time() time.Time { return time.UnixMilli(p.CreatedAt) }

type Options struct {
	Key    string
	Now    func() time.Time
	NewID  func() (string, error)
	Logger *log.Logger
}

type Repository struct {
	store kv.Store
	key   string
	now   func() time.Time
	newID func() (string, error)
	log   *log.Logger

	// Serialises read-modify-write; HTTP handlers run concurrently.
	mu sync.Mutex
}

func NewRepository(store kv.Store, opts Options) *Repository {
	r := &Repository{
		store: store,
		key:   opts.Key,
		now:   opts.Now,
		newID: opts.NewID,
		log:   opts.Logger,
	}
	if r.key == "" {
		r.key = DefaultKey
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = newUUIDv7
	}
	return r
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (r *Repository) Key() string { return r.key }

// List returns the readable stored posts in storage order. Absent or
// malformed documents yield an empty list; entries that fail the post schema
// are skipped.
func (r *Repository) List(ctx context.Context) []Post {
	entries, err := r.read(ctx)
	if err != nil {
		r.printf("list: %v", err)
		return []Post{}
	}
	return readable(entries)
}

// Create stamps a new post, puts it at the head of the list and persists it.
func (r *Repository) Create(ctx context.Context, title, content string) (Post, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return Post{}, ErrInvalid
	}
	id, err := r.newID()
	if err != nil {
		return Post{}, fmt.Errorf("posts: new id: %w", err)
	}
	p := Post{
		ID:        id,
		Title:     title,
		Content:   content,
		CreatedAt: r.now().UnixMilli(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Post{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.readForWrite(ctx)
	if err != nil {
		return Post{}, err
	}
	next := make([]entry, 0, len(cur)+1)
	next = append(next, entry{raw: raw, post: p, ok: true})
	next = append(next, cur...)
	if err := r.write(ctx, next); err != nil {
		return Post{}, err
	}
	return p, nil
}

// DeleteByID removes the post with the given id and reports whether one was
// found. A missing id leaves the stored document untouched.
func (r *Repository) DeleteByID(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.readForWrite(ctx)
	if err != nil {
		return false, err
	}
	next := make([]entry, 0, len(cur))
	for _, e := range cur {
		if e.ok && e.post.ID == id {
			continue
		}
		next = append(next, e)
	}
	if len(next) == len(cur) {
		return false, nil
	}
	if err := r.write(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// SortNewestFirst returns a copy ordered by CreatedAt descending.
func SortNewestFirst(in []Post) []Post {
	out := append([]Post(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// entry is one element of the stored array. raw is written back unchanged,
// so elements this version cannot read survive later writes.
type entry struct {
	raw  json.RawMessage
	post Post
	ok   bool
}

func readable(entries []entry) []Post {
	out := make([]Post, 0, len(entries))
	for _, e := range entries {
		if e.ok {
			out = append(out, e.post)
		}
	}
	return out
}

func (r *Repository) read(ctx context.Context) ([]entry, error) {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	entries, err := decodeEntries(raw)
	if err != nil {
		return nil, err
	}
	if skipped := len(entries) - len(readable(entries)); skipped > 0 {
		r.printf("%s: skipping %d unreadable entries", r.key, skipped)
	}
	return entries, nil
}

// readForWrite treats a document that is not an array as empty, so the next
// write replaces it, but refuses to continue when the store itself cannot be
// read.
func (r *Repository) readForWrite(ctx context.Context) ([]entry, error) {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	entries, err := decodeEntries(raw)
	if err != nil {
		r.printf("discarding unreadable %s: %v", r.key, err)
		return nil, nil
	}
	return entries, nil
}

func (r *Repository) write(ctx context.Context, entries []entry) error {
	doc := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		doc = append(doc, e.raw)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := r.store.Set(ctx, r.key, b); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// decodeEntries splits a stored document into its elements and checks each
// against the post schema. Only a document that is not a JSON array fails.
func decodeEntries(raw []byte) ([]entry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(items))
	for _, it := range items {
		e := entry{raw: it}
		if protocol.ValidatePost(it) == nil && json.Unmarshal(it, &e.post) == nil {
			e.ok = true
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) printf(format string, args ...any) {
	if r.log != nil {
		r.log.Printf(format, args...)
	}
}
