// Package services – SurveyService
//
// SurveyService ingests form submissions relayed from the form source. The
// order of checks is fixed: shared secret, schema, token, dedup, insert.
// Nothing is written before the secret matches, and a redelivery with the
// same (user, submitted_at) is reported as duplicate without re-scoring.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/config"
	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/observability"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
	"github.com/tbourn/go-wellbeing-backend/internal/survey"
)

// Ingest statuses reported to the form source.
const (
	IngestAccepted   = "accepted"
	IngestDuplicate  = "duplicate"
	IngestUnresolved = "unresolved"
)

// IngestResult is the outcome of one submission.
type IngestResult struct {
	Status     string  `json:"status"`
	ResponseID string  `json:"response_id,omitempty"`
	Score      float64 `json:"score"`
}

// TokenResolver maps an external token to its user.
type TokenResolver interface {
	ResolveByToken(ctx context.Context, token string) (*domain.User, error)
}

// SurveyService validates, resolves, scores and stores submissions.
type SurveyService struct {
	DB       *gorm.DB
	Catalog  *survey.Catalog
	Resolver TokenResolver

	// WebhookToken is the shared secret the form source presents.
	WebhookToken string
	// UnresolvedPolicy is config.UnresolvedReject or config.UnresolvedStore.
	UnresolvedPolicy string
}

// Ingest processes one raw submission presented with secret.
//
// Errors: ErrUnauthorized, ErrMalformedPayload (wrapping the validation
// problems), ErrUnresolvedUser under the reject policy, or a storage error.
// Duplicates are not errors.
func (s *SurveyService) Ingest(ctx context.Context, secret string, raw []byte) (IngestResult, error) {
	ctx, span := observability.Start(ctx, "SurveyService", "Ingest",
		attribute.Int("payload.bytes", len(raw)),
	)
	defer span.End()

	res, outcome, err := s.ingest(ctx, secret, raw)
	observability.Submissions.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))
	return res, err
}

func (s *SurveyService) ingest(ctx context.Context, secret string, raw []byte) (IngestResult, string, error) {
	if err := VerifySecret(s.WebhookToken, secret); err != nil {
		return IngestResult{}, "unauthorized", err
	}

	p, err := survey.ParsePayload(ctx, raw)
	if err != nil {
		logFor(ctx).Warn().Err(err).Int("bytes", len(raw)).Msg("malformed submission")
		return IngestResult{}, "malformed", err
	}
	sub, err := s.Catalog.Extract(p)
	if err != nil {
		logFor(ctx).Warn().Err(err).Time("submitted_at", p.SubmittedAt).Msg("malformed submission")
		return IngestResult{}, "malformed", err
	}
	// MySQL DATETIME(3) keeps milliseconds; the dedup key must compare equal
	// on every driver.
	sub.SubmittedAt = sub.SubmittedAt.UTC().Truncate(time.Millisecond)

	var user *domain.User
	if sub.TokenValid {
		user, err = s.Resolver.ResolveByToken(ctx, sub.Token)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return IngestResult{}, "error", err
		}
	}
	if user == nil {
		return s.unresolved(ctx, sub)
	}

	if _, err := repo.GetResponse(ctx, s.DB, user.ID, sub.SubmittedAt); err == nil {
		return IngestResult{Status: IngestDuplicate}, IngestDuplicate, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return IngestResult{}, "error", err
	}

	score := s.Catalog.Score(sub.Answers).Total
	row, err := newResponse(&user.ID, sub, score)
	if err != nil {
		return IngestResult{}, "error", err
	}
	if err := repo.CreateResponse(ctx, s.DB, row); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a race with a concurrent redelivery.
			return IngestResult{Status: IngestDuplicate}, IngestDuplicate, nil
		}
		return IngestResult{}, "error", err
	}
	return IngestResult{Status: IngestAccepted, ResponseID: row.ID, Score: score}, IngestAccepted, nil
}

// unresolved applies the configured policy to a submission whose token did
// not resolve.
func (s *SurveyService) unresolved(ctx context.Context, sub survey.Submission) (IngestResult, string, error) {
	lg := logFor(ctx).With().
		Time("submitted_at", sub.SubmittedAt).
		Str("token_prefix", prefix(sub.Token, 4)).
		Bool("token_valid", sub.TokenValid).
		Logger()

	if s.UnresolvedPolicy != config.UnresolvedStore {
		lg.Warn().Msg("unresolved submission rejected")
		return IngestResult{Status: IngestUnresolved}, "rejected", ErrUnresolvedUser
	}

	score := s.Catalog.Score(sub.Answers).Total
	row, err := newResponse(nil, sub, score)
	if err != nil {
		return IngestResult{}, "error", err
	}
	row.UnresolvedToken = sub.Token
	if sub.Token != "" {
		key := unresolvedKey(sub.Token, sub.SubmittedAt, row.RawAnswers)
		row.UnresolvedKey = &key
	}
	if err := repo.CreateResponse(ctx, s.DB, row); err != nil {
		if !errors.Is(err, repo.ErrDuplicate) || row.UnresolvedKey == nil {
			return IngestResult{}, "error", err
		}
		// Same token, time and answers: a redelivery of a kept row.
		prev, err := repo.GetUnresolvedResponseByKey(ctx, s.DB, *row.UnresolvedKey)
		if err != nil {
			return IngestResult{}, "error", err
		}
		return IngestResult{Status: IngestUnresolved, ResponseID: prev.ID, Score: prev.ComputedScore}, IngestUnresolved, nil
	}
	lg.Warn().Str("response_id", row.ID).Msg("unresolved submission stored")
	return IngestResult{Status: IngestUnresolved, ResponseID: row.ID, Score: score}, IngestUnresolved, nil
}

// UnresolvedSubmission is a kept submission awaiting an operator.
type UnresolvedSubmission struct {
	ID          string              `json:"id"`
	Token       string              `json:"token"`
	SubmittedAt time.Time           `json:"submitted_at"`
	ReceivedAt  time.Time           `json:"received_at"`
	Score       float64             `json:"score"`
	Answers     map[string][]string `json:"answers"`
}

// Unresolved lists the submissions kept without a user, most recently
// received first. limit <= 0 lists all of them.
func (s *SurveyService) Unresolved(ctx context.Context, limit int) ([]UnresolvedSubmission, error) {
	ctx, span := observability.Start(ctx, "SurveyService", "Unresolved")
	defer span.End()

	rows, err := repo.ListUnresolvedResponses(ctx, s.DB, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UnresolvedSubmission, 0, len(rows))
	for _, r := range rows {
		item := UnresolvedSubmission{
			ID:          r.ID,
			Token:       r.UnresolvedToken,
			SubmittedAt: r.SubmittedAt.UTC(),
			ReceivedAt:  r.CreatedAt.UTC(),
			Score:       r.ComputedScore,
		}
		if err := json.Unmarshal(r.RawAnswers, &item.Answers); err != nil {
			logFor(ctx).Warn().Err(err).Str("response_id", r.ID).Msg("unreadable raw answers")
		}
		out = append(out, item)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func newResponse(userID *string, sub survey.Submission, score float64) (*domain.SurveyResponse, error) {
	b, err := json.Marshal(sub.Raw)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return &domain.SurveyResponse{
		UserID:        userID,
		SubmittedAt:   sub.SubmittedAt,
		RawAnswers:    datatypes.JSON(b),
		ComputedScore: score,
	}, nil
}

// unresolvedKey digests the fields that identify a redelivered unresolved
// submission. answers is the JSON encoding of the raw answer map, whose keys
// encoding/json already emits sorted.
func unresolvedKey(token string, at time.Time, answers []byte) string {
	h := sha256.New()
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write([]byte(at.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write(answers)
	return hex.EncodeToString(h.Sum(nil))
}

// prefix returns at most n leading bytes of s, for logs.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
