// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Connector hands out the shared database handle
type Connector interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

// BaseRepository provides common repository functionality with transaction support
type BaseRepository[T any, F any] struct {
	conn Connector
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](conn Connector) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		conn: conn,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T, F]) getDB(ctx context.Context) (*gorm.DB, error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx, nil
	}
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

// ByID retrieves an entity by its ID
func (r *BaseRepository[T, F]) ByID(ctx context.Context, id uuid.UUID) (*T, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}

	var entity T
	err = db.Where("id = ?", id).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entity by ID %s: %w", id, err)
	}

	return &entity, nil
}

// Save inserts a new entity
func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return err
	}

	if err := db.Create(entity).Error; err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	return nil
}
