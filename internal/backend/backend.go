// Package backend opens the persistence and session stores named by the
// configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackify/internal/config"
	"trackify/internal/log"
	"trackify/internal/session"
	"trackify/internal/storage"
	"trackify/internal/storage/mongostore"
)

// BackendType represents the kind of record store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongodb"
)

// IsValid reports whether t is a known backend type
func (t BackendType) IsValid() bool {
	return t == SQLiteBackend || t == MongoBackend
}

// ParseDatabaseURL picks the backend for a DATABASE_URL and returns the
// location to hand to it: the full URI for MongoDB, a file path for SQLite.
func ParseDatabaseURL(raw string) (BackendType, string, error) {
	switch {
	case raw == "":
		return "", "", errors.New("empty database url")
	case strings.HasPrefix(raw, "mongodb://"), strings.HasPrefix(raw, "mongodb+srv://"):
		return MongoBackend, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		return SQLiteBackend, strings.TrimPrefix(raw, "sqlite://"), nil
	case strings.HasPrefix(raw, "sqlite:"):
		return SQLiteBackend, strings.TrimPrefix(raw, "sqlite:"), nil
	case strings.Contains(raw, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", raw)
	}
	// "file:..." DSNs and bare paths go to SQLite unchanged.
	return SQLiteBackend, raw, nil
}

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// BackendResult contains the opened stores and their cleanup function
type BackendResult struct {
	Type     BackendType
	Store    storage.Store
	Sessions session.Store
	Cleanup  CleanupFunc
}

// Open connects the record store and session store described by cfg. Both
// are pinged, so a returned result is ready to serve.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*BackendResult, error) {
	typ, location, err := ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger = logger.WithComponent(log.ComponentStorage)

	result := &BackendResult{Type: typ}
	var closers []func() error

	switch typ {
	case MongoBackend:
		store, err := mongostore.Open(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
		}
		result.Store = store
		result.Sessions = store
		closers = append(closers, store.Close)
	case SQLiteBackend:
		db, err := storage.NewDB(location)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		result.Store = db
		result.Sessions = db
		closers = append(closers, db.Close)
	}
	logger.Info("Initialized record store", log.FieldBackend, string(typ))

	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		result.Sessions = session.NewMemoryStore()
	case config.SessionStoreRedis:
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, fmt.Errorf("failed to initialize Redis session store: %w", err)
		}
		result.Sessions = rs
		closers = append(closers, rs.Close)
	}
	logger.Info("Initialized session store", "session_store", cfg.SessionStore)

	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return result, nil
}
