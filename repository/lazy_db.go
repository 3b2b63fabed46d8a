package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"
)

// OpenFunc opens and verifies a new database handle
type OpenFunc func(ctx context.Context) (*gorm.DB, error)

// LazyDB is the process-wide database handle. The connection is opened on first
// use and reused afterwards; concurrent first callers wait for a single open.
// A failed open is not remembered, so the next caller tries again.
type LazyDB struct {
	mu   sync.Mutex
	open OpenFunc
	db   atomic.Pointer[gorm.DB]
}

// NewLazyDB creates a handle that connects on first use
func NewLazyDB(open OpenFunc) *LazyDB {
	return &LazyDB{open: open}
}

// NewStaticDB wraps an already open handle
func NewStaticDB(db *gorm.DB) *LazyDB {
	l := &LazyDB{}
	l.db.Store(db)
	return l
}

// DB returns the shared handle, opening it if needed
func (l *LazyDB) DB(ctx context.Context) (*gorm.DB, error) {
	if db := l.db.Load(); db != nil {
		return db, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if db := l.db.Load(); db != nil {
		return db, nil
	}
	if l.open == nil {
		return nil, fmt.Errorf("database connector not configured")
	}

	db, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l.db.Store(db)
	return db, nil
}

// Connected reports whether the handle has been opened
func (l *LazyDB) Connected() bool {
	return l.db.Load() != nil
}

// Close closes the underlying pool if it was opened
func (l *LazyDB) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	db := l.db.Swap(nil)
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
