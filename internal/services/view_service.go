// Package services – ViewService
//
// ViewService builds the read-only dashboard views: the aggregate list of
// every user's latest score and the per-user history. It never writes.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/observability"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
	"github.com/tbourn/go-wellbeing-backend/internal/survey"
)

// Display placeholders.
const (
	viewTimeLayout = "2006-01-02 15:04:05"
	noTimestamp    = "-"
)

// ViewRepo defines the repository contract required by ViewService.
type ViewRepo interface {
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)
	GetUserByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, error)
	ListResolvedResponses(ctx context.Context, db *gorm.DB) ([]domain.SurveyResponse, error)
	ListResponsesByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.SurveyResponse, error)
	UsersStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
	ResponsesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// UserSummary is one dashboard row.
type UserSummary struct {
	DisplayName   string   `json:"display_name"`
	ExternalToken string   `json:"external_token"`
	LatestScore   *float64 `json:"latest_score"`
	LatestStatus  string   `json:"latest_status"`
	LatestAt      string   `json:"latest_at"`
	Risk          string   `json:"risk"`

	latest time.Time
}

// HistoryPoint is the last submission of one calendar day.
type HistoryPoint struct {
	Date        string    `json:"date"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// UserDetail is the per-user view.
type UserDetail struct {
	UserSummary
	MaxScore  float64        `json:"max_score"`
	History   []HistoryPoint `json:"history"`
	Breakdown []survey.Point `json:"breakdown"`
}

// ViewService builds dashboard views.
type ViewService struct {
	DB      *gorm.DB
	Repo    ViewRepo
	Catalog *survey.Catalog
	// Location renders timestamps and defines calendar days. Nil means UTC.
	Location *time.Location
}

// LatestScores returns every user with their latest response, highest score
// first. Users without any response come last, in registration order.
func (s *ViewService) LatestScores(ctx context.Context) ([]UserSummary, error) {
	ctx, span := observability.Start(ctx, "ViewService", "LatestScores")
	defer span.End()

	users, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.ListResolvedResponses(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*domain.SurveyResponse, len(users))
	for i := range rows {
		r := &rows[i]
		if r.UserID == nil {
			continue
		}
		if cur, ok := latest[*r.UserID]; !ok || r.SubmittedAt.After(cur.SubmittedAt) {
			latest[*r.UserID] = r
		}
	}

	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, s.summary(&users[i], latest[users[i].ID]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LatestScore, out[j].LatestScore
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		case *a != *b:
			return *a > *b
		default:
			return out[i].latest.After(out[j].latest)
		}
	})
	span.SetAttributes(attribute.Int("users", len(out)))
	return out, nil
}

// UserView returns the detail view for token, or ErrUserNotFound.
func (s *ViewService) UserView(ctx context.Context, token string) (*UserDetail, error) {
	ctx, span := observability.Start(ctx, "ViewService", "UserView")
	defer span.End()

	u, err := s.user(ctx, token)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.ListResponsesByUser(ctx, s.DB, u.ID)
	if err != nil {
		return nil, err
	}

	var last *domain.SurveyResponse
	for i := range rows {
		if last == nil || rows[i].SubmittedAt.After(last.SubmittedAt) {
			last = &rows[i]
		}
	}

	d := &UserDetail{
		UserSummary: s.summary(u, last),
		MaxScore:    s.Catalog.MaxScore(),
		History:     s.history(rows),
		Breakdown:   []survey.Point{},
	}
	if last != nil {
		d.Breakdown = s.breakdown(ctx, last)
	}
	return d, nil
}

// History returns one point per calendar day for token, oldest first.
func (s *ViewService) History(ctx context.Context, token string) ([]HistoryPoint, error) {
	u, err := s.user(ctx, token)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.ListResponsesByUser(ctx, s.DB, u.ID)
	if err != nil {
		return nil, err
	}
	return s.history(rows), nil
}

// OverviewTag returns a weak validator for LatestScores. It changes whenever
// a user is added or renamed or a response is stored.
func (s *ViewService) OverviewTag(ctx context.Context) (string, error) {
	uc, ut, err := s.Repo.UsersStats(ctx, s.DB)
	if err != nil {
		return "", err
	}
	rc, rt, err := s.Repo.ResponsesStats(ctx, s.DB, "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`W/"overview:%d:%d:%d:%d"`, uc, unixNano(ut), rc, unixNano(rt)), nil
}

// UserTag returns a weak validator for UserView, or ErrUserNotFound.
func (s *ViewService) UserTag(ctx context.Context, token string) (string, error) {
	u, err := s.user(ctx, token)
	if err != nil {
		return "", err
	}
	rc, rt, err := s.Repo.ResponsesStats(ctx, s.DB, u.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`W/"user:%s:%d:%d:%d"`, u.ID, u.UpdatedAt.UnixNano(), rc, unixNano(rt)), nil
}

func (s *ViewService) user(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.Repo.GetUserByToken(ctx, s.DB, token)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *ViewService) summary(u *domain.User, last *domain.SurveyResponse) UserSummary {
	name := cleanName(u.DisplayName)
	if name == "" {
		name = placeholderName
	}
	sum := UserSummary{
		DisplayName:   name,
		ExternalToken: u.ExternalToken,
		LatestAt:      noTimestamp,
		Risk:          survey.RiskNone,
	}
	if last == nil {
		sum.LatestStatus = s.Catalog.StatusLabel(survey.RiskNone)
		return sum
	}
	score := last.ComputedScore
	sum.LatestScore = &score
	sum.Risk = s.Catalog.RiskLevel(score)
	sum.LatestStatus = s.Catalog.StatusLabel(sum.Risk)
	sum.LatestAt = last.SubmittedAt.In(s.loc()).Format(viewTimeLayout)
	sum.latest = last.SubmittedAt
	return sum
}

// history keeps the latest submission of each calendar day.
func (s *ViewService) history(rows []domain.SurveyResponse) []HistoryPoint {
	byDay := make(map[string]HistoryPoint, len(rows))
	for _, r := range rows {
		day := r.SubmittedAt.In(s.loc()).Format(time.DateOnly)
		if cur, ok := byDay[day]; ok && !r.SubmittedAt.After(cur.SubmittedAt) {
			continue
		}
		byDay[day] = HistoryPoint{Date: day, Score: r.ComputedScore, SubmittedAt: r.SubmittedAt.UTC()}
	}
	out := make([]HistoryPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// breakdown re-reads the stored answers through the catalog. The stored
// score is authoritative; this is display only.
func (s *ViewService) breakdown(ctx context.Context, r *domain.SurveyResponse) []survey.Point {
	var raw map[string][]string
	if err := json.Unmarshal(r.RawAnswers, &raw); err != nil {
		logFor(ctx).Warn().Err(err).Str("response_id", r.ID).Msg("decode stored answers")
		return []survey.Point{}
	}
	p := survey.Payload{SubmittedAt: r.SubmittedAt, Responses: make(map[string]survey.AnswerList, len(raw))}
	for k, v := range raw {
		p.Responses[k] = v
	}
	sub, err := s.Catalog.Extract(p)
	if err != nil {
		logFor(ctx).Warn().Err(err).Str("response_id", r.ID).Msg("re-read stored answers")
		return []survey.Point{}
	}
	return s.Catalog.Score(sub.Answers).Points
}

func (s *ViewService) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func unixNano(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}
