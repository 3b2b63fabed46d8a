// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"

	"github.com/festgo/rbg-registration/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

var (
	// ErrRegistrationAlreadyAttached is returned when a submission already carries its sms status
	ErrRegistrationAlreadyAttached = errors.New("registration details already attached")
)

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uuid.UUID) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// SubmissionRepository defines operations for registration submissions
type SubmissionRepository interface {
	Repository[models.Submission, models.SubmissionFilter]
	// FindOne returns the most recent submission matching filter, or nil
	FindOne(ctx context.Context, filter models.SubmissionFilter) (*models.Submission, error)
	// UpdateRegistration attaches regNo and the sms status; it succeeds only on the first write
	UpdateRegistration(ctx context.Context, id uuid.UUID, regNo string, status models.SMSStatus) error
}
