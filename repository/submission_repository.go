package repository

import (
	"context"
	"fmt"

	"github.com/festgo/rbg-registration/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionRepositoryImpl implements SubmissionRepository
type SubmissionRepositoryImpl struct {
	*BaseRepository[models.Submission, models.SubmissionFilter]
}

func NewSubmissionRepository(conn Connector) SubmissionRepository {
	return &SubmissionRepositoryImpl{BaseRepository: NewBaseRepository[models.Submission, models.SubmissionFilter](conn)}
}

func (r *SubmissionRepositoryImpl) applyFilter(db *gorm.DB, f models.SubmissionFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.RegNo != nil {
		db = db.Where("reg_no = ?", *f.RegNo)
	}
	if f.SMSOK != nil {
		db = db.Where("COALESCE((sms_status->>'ok')::boolean, false) = ?", *f.SMSOK)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *SubmissionRepositoryImpl) ByFilter(ctx context.Context, filter models.SubmissionFilter, orderBy string, limit, offset int) ([]*models.Submission, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}
	query := r.applyFilter(db.Model(&models.Submission{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Submission
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find submissions by filter: %w", err)
	}
	return rows, nil
}

func (r *SubmissionRepositoryImpl) FindOne(ctx context.Context, filter models.SubmissionFilter) (*models.Submission, error) {
	rows, err := r.ByFilter(ctx, filter, "created_at DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *SubmissionRepositoryImpl) UpdateRegistration(ctx context.Context, id uuid.UUID, regNo string, status models.SMSStatus) error {
	db, err := r.getDB(ctx)
	if err != nil {
		return err
	}

	// Column-level Updates skips the serializer, so the struct form is used to keep
	// sms_status encoded as JSON.
	result := db.Model(&models.Submission{}).
		Where("id = ? AND sms_status IS NULL", id).
		Select("reg_no", "sms_status").
		Updates(&models.Submission{RegNo: &regNo, SMSStatus: &status})
	if result.Error != nil {
		return fmt.Errorf("failed to update submission %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("submission %s: %w", id, ErrRegistrationAlreadyAttached)
	}
	return nil
}

func (r *SubmissionRepositoryImpl) Count(ctx context.Context, filter models.SubmissionFilter) (int64, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return 0, err
	}
	query := r.applyFilter(db.Model(&models.Submission{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

func (r *SubmissionRepositoryImpl) Exists(ctx context.Context, filter models.SubmissionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
