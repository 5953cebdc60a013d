// Package profile is the repository for the single page-owner profile, plus
// the helpers the editor needs: age pluralisation and avatar sources.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"personalpage/internal/persistence/kv"
	"personalpage/internal/protocol"
)

const DefaultKey = "hw1_profile_v1"

var ErrPersist = errors.New("profile: storage unavailable")

// Profile fields are free text. Age holds the already formatted display string.
type Profile struct {
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	School  string `json:"school"`
	Age     string `json:"age"`
	Hobbies string `json:"hobbies"`
}

type Repository struct {
	store kv.Store
	key   string
	log   *log.Logger
	mu    sync.Mutex
}

func NewRepository(store kv.Store, key string, logger *log.Logger) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{store: store, key: key, log: logger}
}

func (r *Repository) Key() string { return r.key }

// Stored returns the saved profile and true, or false when nothing usable is stored.
func (r *Repository) Stored(ctx context.Context) (Profile, bool) {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		r.printf("load: %v", err)
		return Profile{}, false
	}
	if !ok || len(raw) == 0 {
		return Profile{}, false
	}
	p, err := Decode(raw)
	if err != nil {
		r.printf("discarding unreadable %s: %v", r.key, err)
		return Profile{}, false
	}
	return p, true
}

// Load returns the stored profile, or def when none is stored.
func (r *Repository) Load(ctx context.Context, def Profile) Profile {
	if p, ok := r.Stored(ctx); ok {
		return p
	}
	return def
}

// Save replaces the stored profile wholesale.
func (r *Repository) Save(ctx context.Context, p Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Set(ctx, r.key, b); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Decode parses a stored profile document after checking it against the schema.
func Decode(raw []byte) (Profile, error) {
	var p Profile
	if err := protocol.ValidateProfile(raw); err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	return p, nil
}

func (r *Repository) printf(format string, args ...any) {
	if r.log != nil {
		r.log.Printf(format, args...)
	}
}
