// Package kv holds the key-value substrate the page records live in.
//
// Every backend stores opaque byte values (JSON documents in practice) under
// string keys. A missing key is reported through the ok flag, never as an error.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store is the get/set surface the repositories are written against.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrEmptyKey       = errors.New("empty key")
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend string

	// file
	Dir string
	// sqlite
	Path string
	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	// postgres
	DSN string

	DialTimeout time.Duration
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendSQLite
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return OpenFile(cfg.Dir)
	case BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendRedis:
		dctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return OpenRedis(dctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
	case BackendPostgres:
		dctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return OpenPostgres(dctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
