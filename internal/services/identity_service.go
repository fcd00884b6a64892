// Package services – IdentityService
//
// IdentityService links a chat-platform user id to an internal user and an
// opaque external token. Creation is an optimistic insert guarded by unique
// indexes on both the platform id and the token: on a conflict the row is
// fetched again instead of failing, so concurrent first-contact events for
// the same user (in one process or many) end with exactly one row and one
// token.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/observability"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
)

// placeholderName is what older rows and the chat platform use for "no name".
const placeholderName = "未設定"

// tokenBytes is the entropy of an external token (144 bits).
const tokenBytes = 18

// UserRepo defines the repository contract required by IdentityService.
type UserRepo interface {
	// CreateUser inserts a user; it returns repo.ErrDuplicate on a unique violation.
	CreateUser(ctx context.Context, db *gorm.DB, platformUserID, token, displayName string) (*domain.User, error)
	// GetUserByPlatformID returns repo.ErrNotFound when absent.
	GetUserByPlatformID(ctx context.Context, db *gorm.DB, platformUserID string) (*domain.User, error)
	// GetUserByToken returns repo.ErrNotFound when absent.
	GetUserByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, error)
	// UpdateDisplayName replaces the mutable display name.
	UpdateDisplayName(ctx context.Context, db *gorm.DB, id, name string) error
}

// ProfileSource looks up a chat-platform display name.
type ProfileSource interface {
	DisplayName(ctx context.Context, platformUserID string) (string, error)
}

// IdentityService resolves and creates users.
type IdentityService struct {
	DB   *gorm.DB
	Repo UserRepo

	// Profiles is optional; without it display names stay as hinted.
	Profiles ProfileSource
	// ProfileTimeout bounds a single profile lookup.
	ProfileTimeout time.Duration

	// NewToken issues external tokens. Tests replace it to force collisions.
	NewToken func() (string, error)
	// MaxTokenAttempts caps re-issuance after a token collision.
	MaxTokenAttempts int
}

// NewIdentityService constructs an IdentityService with default token issuance.
func NewIdentityService(db *gorm.DB, r UserRepo, profiles ProfileSource) *IdentityService {
	return &IdentityService{
		DB:               db,
		Repo:             r,
		Profiles:         profiles,
		ProfileTimeout:   3 * time.Second,
		NewToken:         NewExternalToken,
		MaxTokenAttempts: 3,
	}
}

// NewExternalToken returns a URL-safe random token with 144 bits of entropy.
func NewExternalToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ResolveOrCreate returns the user for platformUserID, creating it with a
// fresh token when absent. created is true for exactly one caller per
// platform id, however many race. nameHint, when non-empty, is stored as the
// display name; otherwise the profile source is consulted best effort.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, platformUserID, nameHint string) (*domain.User, bool, error) {
	platformUserID = strings.TrimSpace(platformUserID)
	ctx, span := observability.Start(ctx, "IdentityService", "ResolveOrCreate",
		attribute.String("platform.user_id", platformUserID),
	)
	defer span.End()

	if platformUserID == "" {
		return nil, false, ErrEmptyPlatformID
	}

	u, err := s.Repo.GetUserByPlatformID(ctx, s.DB, platformUserID)
	switch {
	case err == nil:
		return u, false, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, false, err
	}

	name := cleanName(nameHint)
	if name == "" {
		name = s.lookupName(ctx, platformUserID)
	}

	attempts := s.MaxTokenAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		token, err := s.NewToken()
		if err != nil {
			return nil, false, err
		}
		nu, err := s.Repo.CreateUser(ctx, s.DB, platformUserID, token, name)
		if err == nil {
			observability.UsersCreated.Inc()
			return nu, true, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, false, err
		}

		// Someone else won the insert, or the token collided.
		existing, gerr := s.Repo.GetUserByPlatformID(ctx, s.DB, platformUserID)
		if gerr == nil {
			return existing, false, nil
		}
		if !errors.Is(gerr, repo.ErrNotFound) {
			return nil, false, gerr
		}
		logFor(ctx).Warn().Int("attempt", i+1).Msg("external token collision; reissuing")
	}
	return nil, false, fmt.Errorf("issue token for %s: %d collisions", platformUserID, attempts)
}

// ResolveByToken returns the user owning token or ErrUserNotFound.
func (s *IdentityService) ResolveByToken(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := observability.Start(ctx, "IdentityService", "ResolveByToken")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.Repo.GetUserByToken(ctx, s.DB, token)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Register is the operator path to ResolveOrCreate.
func (s *IdentityService) Register(ctx context.Context, platformUserID, name string) (*domain.User, bool, error) {
	return s.ResolveOrCreate(ctx, platformUserID, name)
}

// RefreshDisplayName fills in the display name of an existing user whose
// stored name is empty or the placeholder. Failures are logged and ignored.
func (s *IdentityService) RefreshDisplayName(ctx context.Context, u *domain.User) {
	if u == nil || cleanName(u.DisplayName) != "" {
		return
	}
	name := s.lookupName(ctx, u.PlatformUserID)
	if name == "" {
		return
	}
	if err := s.Repo.UpdateDisplayName(ctx, s.DB, u.ID, name); err != nil {
		logFor(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("update display name")
		return
	}
	u.DisplayName = name
}

func (s *IdentityService) lookupName(ctx context.Context, platformUserID string) string {
	if s.Profiles == nil {
		return ""
	}
	if s.ProfileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ProfileTimeout)
		defer cancel()
	}
	name, err := s.Profiles.DisplayName(ctx, platformUserID)
	if err != nil {
		logFor(ctx).Debug().Err(err).Msg("profile lookup failed")
		return ""
	}
	return cleanName(name)
}

// cleanName trims a display name and maps the placeholder to empty.
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if s == placeholderName {
		return ""
	}
	return s
}
