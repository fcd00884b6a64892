// Package handlers implements the HTTP endpoints of the wellbeing backend.
//
// Handlers are transport-thin: they authenticate the caller where the
// service does not, read the request, call a service through one of the
// interfaces below, and translate the outcome into a status code and the
// shared JSON envelope.
package handlers

import (
	"context"
	"net/http"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// SurveyIngestor accepts relayed form submissions.
type SurveyIngestor interface {
	// Ingest verifies secret, validates raw and stores the scored response.
	Ingest(ctx context.Context, secret string, raw []byte) (services.IngestResult, error)
}

// EventHandler processes verified chat webhook events.
type EventHandler interface {
	HandleEvents(ctx context.Context, events []services.ChatEvent) services.OnboardingReport
}

// DailyRunner performs one daily push firing.
type DailyRunner interface {
	RunOnce(ctx context.Context) (services.RunSummary, error)
}

// Viewer builds the read-only dashboard projections.
type Viewer interface {
	LatestScores(ctx context.Context) ([]services.UserSummary, error)
	UserView(ctx context.Context, token string) (*services.UserDetail, error)
	History(ctx context.Context, token string) ([]services.HistoryPoint, error)
	OverviewTag(ctx context.Context) (string, error)
	UserTag(ctx context.Context, token string) (string, error)
}

// Registrar registers users on behalf of an operator.
type Registrar interface {
	Register(ctx context.Context, platformUserID, name string) (*domain.User, bool, error)
}

// OrphanLister lists submissions kept without a resolved user.
type OrphanLister interface {
	Unresolved(ctx context.Context, limit int) ([]services.UnresolvedSubmission, error)
}

// EventParser verifies a chat webhook request and returns its events.
type EventParser func(r *http.Request) ([]services.ChatEvent, error)

//
// Handler wiring
//

// Deps lists the services the handlers depend on. Nil members disable the
// endpoints that need them (they answer 503).
type Deps struct {
	Forms    SurveyIngestor
	Events   EventHandler
	Parse    EventParser
	Daily    DailyRunner
	Views    Viewer
	Registry Registrar
	Orphans  OrphanLister
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	forms    SurveyIngestor
	events   EventHandler
	parse    EventParser
	daily    DailyRunner
	views    Viewer
	registry Registrar
	orphans  OrphanLister
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		forms:    d.Forms,
		events:   d.Events,
		parse:    d.Parse,
		daily:    d.Daily,
		views:    d.Views,
		registry: d.Registry,
		orphans:  d.Orphans,
	}
}
