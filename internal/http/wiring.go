package httpapi

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/config"
	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
	"github.com/tbourn/go-wellbeing-backend/internal/survey"
)

// repoShim adapts the repository free functions to the repository
// interfaces the services expect (UserRepo, DispatchRepo, ViewRepo). This
// keeps services decoupled from the concrete repo package.
type repoShim struct{}

func (repoShim) CreateUser(ctx context.Context, db *gorm.DB, platformUserID, token, displayName string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, platformUserID, token, displayName)
}

func (repoShim) GetUserByPlatformID(ctx context.Context, db *gorm.DB, platformUserID string) (*domain.User, error) {
	return repo.GetUserByPlatformID(ctx, db, platformUserID)
}

func (repoShim) GetUserByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, error) {
	return repo.GetUserByToken(ctx, db, token)
}

func (repoShim) UpdateDisplayName(ctx context.Context, db *gorm.DB, id, name string) error {
	return repo.UpdateDisplayName(ctx, db, id, name)
}

func (repoShim) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}

func (repoShim) ClaimDailyDispatch(ctx context.Context, db *gorm.DB, userID, date string, now time.Time) (*domain.DailyDispatchRecord, error) {
	return repo.ClaimDailyDispatch(ctx, db, userID, date, now)
}

func (repoShim) ListResolvedResponses(ctx context.Context, db *gorm.DB) ([]domain.SurveyResponse, error) {
	return repo.ListResolvedResponses(ctx, db)
}

func (repoShim) ListResponsesByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.SurveyResponse, error) {
	return repo.ListResponsesByUser(ctx, db, userID)
}

// UsersStats proxies repo.UsersStats (overview ETag).
func (repoShim) UsersStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.UsersStats(ctx, db)
}

// ResponsesStats proxies repo.ResponsesStats (overview and user ETags).
func (repoShim) ResponsesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.ResponsesStats(ctx, db, userID)
}

// Platform carries the chat-platform collaborators. Both may be nil: without
// a Messenger every dispatch fails as not configured, without Profiles new
// users keep the hinted display name.
type Platform struct {
	Messenger services.Messenger
	Profiles  services.ProfileSource
}

// Services is the wired application layer shared by the HTTP server and
// the command line.
type Services struct {
	Catalog    *survey.Catalog
	Identity   *services.IdentityService
	Survey     *services.SurveyService
	Dispatcher *services.Dispatcher
	Onboarding *services.OnboardingService
	Scheduler  *services.DailyScheduler
	Views      *services.ViewService
}

// LoadCatalog returns the question catalog named by cfg (the embedded
// default when no path is set) with the configured token label applied.
func LoadCatalog(cfg config.SurveyConfig) (*survey.Catalog, error) {
	c, err := survey.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("question catalog: %w", err)
	}
	return c.WithTokenLabel(cfg.TokenLabel)
}

// NewServices wires every service against db and cfg.
func NewServices(db *gorm.DB, cfg config.Config, p Platform) (*Services, error) {
	catalog, err := LoadCatalog(cfg.Survey)
	if err != nil {
		return nil, err
	}

	links := services.LinkBuilder{
		FormBaseURL: cfg.Links.FormBaseURL,
		FormEntryID: cfg.Links.FormEntryID,
		AppBaseURL:  cfg.Links.AppBaseURL,
	}
	identity := services.NewIdentityService(db, repoShim{}, p.Profiles)
	dispatcher := &services.Dispatcher{
		Messenger:    p.Messenger,
		Timeout:      cfg.Dispatch.Timeout,
		RetryBackoff: cfg.Dispatch.RetryBackoff,
	}

	return &Services{
		Catalog:    catalog,
		Identity:   identity,
		Dispatcher: dispatcher,
		Survey: &services.SurveyService{
			DB:               db,
			Catalog:          catalog,
			Resolver:         identity,
			WebhookToken:     cfg.WebhookToken,
			UnresolvedPolicy: cfg.Survey.UnresolvedPolicy,
		},
		Onboarding: &services.OnboardingService{
			Registry: identity,
			Sender:   dispatcher,
			Links:    links,
		},
		Scheduler: &services.DailyScheduler{
			DB:          db,
			Repo:        repoShim{},
			Sender:      dispatcher,
			Links:       links,
			Location:    cfg.DailyPush.Location,
			Hour:        cfg.DailyPush.Hour,
			Minute:      cfg.DailyPush.Minute,
			Concurrency: cfg.DailyPush.Concurrency,
		},
		Views: &services.ViewService{
			DB:       db,
			Repo:     repoShim{},
			Catalog:  catalog,
			Location: cfg.Location,
		},
	}, nil
}
