// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SurveyResponse model.
//
// Error semantics:
//   - A redelivered submission (same user_id, submitted_at) hits the
//     unique index and is returned as ErrDuplicate.
//   - Rows with a NULL user_id (the unresolved bucket) collide only on
//     unresolved_key; rows without a key are always inserted.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
)

// CreateResponse inserts r, filling ID and CreatedAt when empty. SubmittedAt
// is stored in UTC so the dedup key compares equal across drivers.
func CreateResponse(ctx context.Context, db *gorm.DB, r *domain.SurveyResponse) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.SubmittedAt = r.SubmittedAt.UTC()
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetResponse returns the response stored for (userID, submittedAt), or ErrNotFound.
func GetResponse(ctx context.Context, db *gorm.DB, userID string, submittedAt time.Time) (*domain.SurveyResponse, error) {
	var r domain.SurveyResponse
	err := db.WithContext(ctx).
		Where("user_id = ? AND submitted_at = ?", userID, submittedAt.UTC()).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetUnresolvedResponseByKey returns the unresolved response stored under
// key, or ErrNotFound.
func GetUnresolvedResponseByKey(ctx context.Context, db *gorm.DB, key string) (*domain.SurveyResponse, error) {
	var r domain.SurveyResponse
	err := db.WithContext(ctx).
		Where("user_id IS NULL AND unresolved_key = ?", key).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResponsesByUser returns a user's responses, newest submission first.
func ListResponsesByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.SurveyResponse, error) {
	var out []domain.SurveyResponse
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&out).Error
	return out, err
}

// ListResolvedResponses returns every response linked to a user, newest
// submission first. Callers pick the first row per user for "latest".
func ListResolvedResponses(ctx context.Context, db *gorm.DB) ([]domain.SurveyResponse, error) {
	var out []domain.SurveyResponse
	err := db.WithContext(ctx).
		Where("user_id IS NOT NULL").
		Order("submitted_at DESC, created_at DESC").
		Find(&out).Error
	return out, err
}

// ListUnresolvedResponses returns the submissions kept without a user,
// most recently received first. limit <= 0 means no limit.
func ListUnresolvedResponses(ctx context.Context, db *gorm.DB, limit int) ([]domain.SurveyResponse, error) {
	var out []domain.SurveyResponse
	q := db.WithContext(ctx).
		Where("user_id IS NULL").
		Order("created_at DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
