// Package services – DailyScheduler
//
// DailyScheduler sends every registered user their link message at most once
// per calendar day. Each user is claimed first with a DailyDispatchRecord
// insert; only the caller whose insert succeeds sends. The claim commits
// before the outbound call, so a crash in between under-delivers but never
// double-sends, and overlapping firings from several processes need no lock.
package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/observability"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
)

// DispatchRepo defines the repository contract required by DailyScheduler.
type DispatchRepo interface {
	// ListUsers returns every registered user.
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)
	// ClaimDailyDispatch returns repo.ErrDuplicate when (userID, date) is taken.
	ClaimDailyDispatch(ctx context.Context, db *gorm.DB, userID, date string, now time.Time) (*domain.DailyDispatchRecord, error)
}

// RunSummary reports one firing.
type RunSummary struct {
	Date    string `json:"date"`
	Users   int    `json:"users"`
	Sent    int64  `json:"sent"`
	Skipped int64  `json:"skipped"`
	Failed  int64  `json:"failed"`
}

// DailyScheduler fires the daily push.
type DailyScheduler struct {
	DB     *gorm.DB
	Repo   DispatchRepo
	Sender Sender
	Links  LinkBuilder

	// Location defines the calendar day and the time of day. Nil means UTC.
	Location *time.Location
	Hour     int
	Minute   int
	// Concurrency bounds parallel claims+sends within one firing.
	Concurrency int

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DateKey is the YYYY-MM-DD dispatch date of t in the scheduler's zone.
func (s *DailyScheduler) DateKey(t time.Time) string {
	return t.In(s.loc()).Format(time.DateOnly)
}

// NextRun returns the first firing time strictly after now.
func (s *DailyScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc())
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.loc())
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, s.loc())
	}
	return next
}

// RunOnce performs one firing for today's date. A cancelled ctx stops new
// claims; claims already made are kept.
func (s *DailyScheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	now := s.now()
	sum := RunSummary{Date: s.DateKey(now)}

	ctx, span := observability.Start(ctx, "DailyScheduler", "RunOnce",
		attribute.String("dispatch.date", sum.Date),
	)
	defer span.End()

	users, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil {
		return sum, err
	}
	sum.Users = len(users)

	var sent, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(max(1, s.Concurrency))

	for i := range users {
		if ctx.Err() != nil {
			break
		}
		u := users[i]
		g.Go(func() error {
			switch s.dispatchOne(ctx, &u, sum.Date, now) {
			case DispatchSent:
				sent.Add(1)
			case "skipped":
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Sent, sum.Skipped, sum.Failed = sent.Load(), skipped.Load(), failed.Load()
	observability.DailyRun.WithLabelValues("sent").Set(float64(sum.Sent))
	observability.DailyRun.WithLabelValues("skipped").Set(float64(sum.Skipped))
	observability.DailyRun.WithLabelValues("failed").Set(float64(sum.Failed))
	span.SetAttributes(
		attribute.Int64("sent", sum.Sent),
		attribute.Int64("skipped", sum.Skipped),
		attribute.Int64("failed", sum.Failed),
	)

	logFor(ctx).Info().
		Str("date", sum.Date).
		Int("users", sum.Users).
		Int64("sent", sum.Sent).
		Int64("skipped", sum.Skipped).
		Int64("failed", sum.Failed).
		Msg("daily push finished")
	return sum, ctx.Err()
}

func (s *DailyScheduler) dispatchOne(ctx context.Context, u *domain.User, date string, now time.Time) string {
	lg := logFor(ctx).With().Str("user_id", u.ID).Str("date", date).Logger()

	if _, err := s.Repo.ClaimDailyDispatch(ctx, s.DB, u.ID, date, now); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return "skipped"
		}
		lg.Error().Err(err).Msg("claim daily dispatch")
		return DispatchFailed
	}

	res := s.Sender.Send(ctx, Message{
		To:      u.PlatformUserID,
		Text:    s.Links.Message(u.DisplayName, u.ExternalToken),
		Trigger: "daily",
	})
	if err := res.Err(); err != nil {
		lg.Warn().Err(err).Int("attempts", res.Attempts).Msg("daily dispatch failed")
	}
	return res.Status
}

// Run fires RunOnce at every NextRun until ctx is done.
func (s *DailyScheduler) Run(ctx context.Context) error {
	for {
		next := s.NextRun(s.now())
		logFor(ctx).Info().Time("next_run", next).Msg("daily push scheduled")

		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logFor(ctx).Error().Err(err).Msg("daily push")
		}
	}
}

func (s *DailyScheduler) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *DailyScheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
