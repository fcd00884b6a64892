// Package services – OnboardingService
//
// OnboardingService reacts to verified chat-platform events. Every follow or
// message event from a user source links (or re-links) that user and sends
// the personalised form and dashboard links. Signature verification happens before events reach
// this service; dispatch failures are logged and swallowed so the webhook is
// always acknowledged.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/observability"
)

// Event and source types handled by the onboarding path.
const (
	EventFollow   = "follow"
	EventMessage  = "message"
	EventUnfollow = "unfollow"

	SourceUser  = "user"
	SourceGroup = "group"
	SourceRoom  = "room"
)

// ChatEvent is the platform-neutral view of one verified webhook event.
type ChatEvent struct {
	Type       string
	SourceType string
	UserID     string
	ReplyToken string
}

// Registry is the identity contract onboarding depends on.
type Registry interface {
	ResolveOrCreate(ctx context.Context, platformUserID, nameHint string) (*domain.User, bool, error)
	RefreshDisplayName(ctx context.Context, u *domain.User)
}

// Sender delivers one outbound message.
type Sender interface {
	Send(ctx context.Context, msg Message) DispatchResult
}

// OnboardingReport summarises one webhook delivery.
type OnboardingReport struct {
	Handled int `json:"handled"`
	Skipped int `json:"skipped"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// OnboardingService links users on contact and sends their links.
type OnboardingService struct {
	Registry Registry
	Sender   Sender
	Links    LinkBuilder
}

// HandleEvents processes a verified event batch in order. It never fails:
// per-event problems are logged and counted.
func (s *OnboardingService) HandleEvents(ctx context.Context, events []ChatEvent) OnboardingReport {
	var rep OnboardingReport
	for _, ev := range events {
		if !handled(ev) {
			rep.Skipped++
			continue
		}
		rep.Handled++
		if err := s.OnFirstContact(ctx, ev); err != nil {
			rep.Failed++
			continue
		}
		rep.Sent++
	}
	return rep
}

// handled reports whether ev triggers the link message. Group and room
// sources are ignored, as are unfollow and other lifecycle events.
func handled(ev ChatEvent) bool {
	if ev.SourceType != SourceUser || strings.TrimSpace(ev.UserID) == "" {
		return false
	}
	return ev.Type == EventFollow || ev.Type == EventMessage
}

// OnFirstContact resolves (or creates) the user behind ev and sends the link
// message. Follow events answer through the reply token; anything else is a
// push. The returned error is informational only.
func (s *OnboardingService) OnFirstContact(ctx context.Context, ev ChatEvent) error {
	ctx, span := observability.Start(ctx, "OnboardingService", "OnFirstContact",
		attribute.String("event.type", ev.Type),
	)
	defer span.End()

	lg := logFor(ctx).With().Str("event", ev.Type).Logger()

	u, created, err := s.Registry.ResolveOrCreate(ctx, ev.UserID, "")
	if err != nil {
		lg.Error().Err(err).Msg("resolve user on contact")
		return err
	}
	if !created {
		s.Registry.RefreshDisplayName(ctx, u)
	}
	span.SetAttributes(attribute.Bool("user.created", created))

	msg := Message{
		To:      u.PlatformUserID,
		Text:    s.Links.Message(u.DisplayName, u.ExternalToken),
		Trigger: "onboarding",
	}
	if ev.Type == EventFollow {
		msg.ReplyToken = ev.ReplyToken
	}

	res := s.Sender.Send(ctx, msg)
	if err := res.Err(); err != nil {
		lg.Warn().Err(err).
			Str("user_id", u.ID).
			Int("attempts", res.Attempts).
			Msg("onboarding dispatch failed")
		return err
	}
	lg.Info().Str("user_id", u.ID).Bool("created", created).Msg("onboarding links sent")
	return nil
}
