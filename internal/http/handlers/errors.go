// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// Codes are lowercase snake_case and stable; clients (the form relay, the
// scheduler trigger, dashboard pages) branch on them rather than on messages.
// Every error response carries an HTTP status and one of these codes:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "unresolved_user",
//	  "message": "submission token does not match a registered user"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeMalformedPayload = "malformed_payload"
	ErrCodeUnresolvedUser   = "unresolved_user"
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeIngestFailed     = "ingest_failed"
	ErrCodeRunFailed        = "run_failed"
	ErrCodeRegisterFailed   = "register_failed"
	ErrCodeViewFailed       = "view_failed"
)
