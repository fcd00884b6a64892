// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the claim helpers for the daily dispatch
// guard: a row per (user_id, dispatch_date) whose insert either wins or fails
// with ErrDuplicate.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
)

// ErrDuplicate indicates that a row with the same unique key already exists
// (a second claim for the same user/day, a second user for the same platform
// id, a redelivered survey submission).
var ErrDuplicate = errors.New("duplicate")

// ClaimDailyDispatch inserts the claim for (userID, date). It returns
// ErrDuplicate when another firing already claimed the pair. No transaction
// is held after it returns, so callers may perform slow I/O afterwards.
func ClaimDailyDispatch(ctx context.Context, db *gorm.DB, userID, date string, now time.Time) (*domain.DailyDispatchRecord, error) {
	rec := &domain.DailyDispatchRecord{
		UserID:       userID,
		DispatchDate: date,
		DispatchedAt: now.UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// IsUniqueViolation reports whether err is a unique/primary key violation.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations, and
// MySQL reports "Duplicate entry" unless TranslateError is on.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key") ||
		strings.Contains(low, "duplicate entry") ||
		strings.Contains(low, "duplicate key")
}
