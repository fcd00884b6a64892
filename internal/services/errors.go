// Package services defines the business logic of the wellbeing pipeline:
// identity linking, survey ingestion, notification dispatch, onboarding, the
// daily scheduler and the read-only dashboard views.
//
// This file centralizes service-level error values. Translation into HTTP
// status codes is performed at the handler layer.
package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/tbourn/go-wellbeing-backend/internal/survey"
)

var (
	// ErrUnauthorized is returned when a shared secret or signature does not
	// match. Nothing has been read or written when it is returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedPayload is wrapped by every schema or decoding failure of a
	// form submission. It aliases survey.ErrMalformed.
	ErrMalformedPayload = survey.ErrMalformed

	// ErrUnresolvedUser is returned when a submission's token is absent,
	// malformed or unknown and the unresolved policy is reject.
	ErrUnresolvedUser = errors.New("unresolved user")

	// ErrDuplicateSubmission marks a redelivered submission. Callers see it as
	// the duplicate status, never as a failure.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrDispatchFailure is returned when an outbound message failed after retry.
	ErrDispatchFailure = errors.New("dispatch failed")

	// ErrUserNotFound indicates that no user matches the given token or id.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyPlatformID is returned when a chat-platform user id is blank.
	ErrEmptyPlatformID = errors.New("platform user id is empty")

	// ErrNotConfigured is returned by the dispatcher when no messenger is wired.
	ErrNotConfigured = errors.New("messenger not configured")
)

// VerifySecret compares a presented shared secret against the configured one
// in constant time. An empty configured secret never matches.
func VerifySecret(want, got string) error {
	if want == "" || got == "" {
		return ErrUnauthorized
	}
	w := sha256.Sum256([]byte(want))
	g := sha256.Sum256([]byte(got))
	if subtle.ConstantTimeCompare(w[:], g[:]) != 1 {
		return ErrUnauthorized
	}
	return nil
}
