// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - CreateUser maps unique violations (platform id or token) to ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new user. The insert is the arbiter for concurrent
// first contact: exactly one caller wins, the others get ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, platformUserID, token, displayName string) (*domain.User, error) {
	u := &domain.User{
		ID:             uuid.NewString(),
		PlatformUserID: platformUserID,
		ExternalToken:  token,
		DisplayName:    displayName,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUserByPlatformID fetches a user by chat-platform id, or ErrNotFound.
func GetUserByPlatformID(ctx context.Context, db *gorm.DB, platformUserID string) (*domain.User, error) {
	return firstUser(ctx, db, "platform_user_id = ?", platformUserID)
}

// GetUserByToken fetches a user by external token, or ErrNotFound.
func GetUserByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, error) {
	return firstUser(ctx, db, "external_token = ?", token)
}

// ListUsers returns every registered user ordered by creation time.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// UpdateDisplayName sets the display name of a user. Returns ErrNotFound
// when no row matched.
func UpdateDisplayName(ctx context.Context, db *gorm.DB, id, name string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("display_name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func firstUser(ctx context.Context, db *gorm.DB, cond string, arg any) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where(cond, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
