// Form and chat webhook handlers.
//
//   - POST /api/forms/google   relayed Google Form submission (X-Webhook-Token)
//   - POST /callback           LINE webhook (X-Line-Signature)
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellbeing-backend/internal/http/middleware"
	"github.com/tbourn/go-wellbeing-backend/internal/line"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

// FormPayload documents the body the form relay posts. The handler passes
// the raw bytes through; validation happens in the ingestor.
type FormPayload struct {
	// RFC 3339 submission time; with the user it forms the dedup key.
	SubmittedAt string `json:"submitted_at" example:"2025-01-06T09:30:00+09:00"`
	// Question label -> selected choice labels (single choice per question).
	Responses map[string][]string `json:"responses"`
}

// CallbackResponse acknowledges a webhook delivery.
type CallbackResponse struct {
	OK bool `json:"ok" example:"true"`
	services.OnboardingReport
}

// IngestForm godoc
// @ID          ingestForm
// @Summary     Ingest a form submission
// @Description Verifies the shared secret, validates and scores the submission, and stores it once per (user, submitted_at). Redeliveries answer 200 with status "duplicate".
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Webhook-Token  header  string                true  "Shared secret of the form relay"
// @Param       body             body    handlers.FormPayload  true  "Submission"
//
// @Success     200  {object}  services.IngestResult
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Bad or missing secret"
// @Failure     422  {object}  handlers.ErrorResponse  "Token does not resolve (reject policy); body status=unresolved"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/forms/google [post]
func (h *Handlers) IngestForm(c *gin.Context) {
	if h.forms == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "form ingestion not configured")
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unable to read body")
		return
	}

	res, err := h.forms.Ingest(c.Request.Context(), c.GetHeader(middleware.HeaderWebhookToken), raw)
	switch {
	case err == nil:
		ok(c, http.StatusOK, res)
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid "+middleware.HeaderWebhookToken)
	case errors.Is(err, services.ErrMalformedPayload):
		fail(c, http.StatusBadRequest, ErrCodeMalformedPayload, err.Error())
	case errors.Is(err, services.ErrUnresolvedUser):
		abort(c, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    ErrCodeUnresolvedUser,
			Message: "submission token does not match a registered user",
			Status:  services.IngestUnresolved,
		})
	default:
		fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
	}
}

// Callback godoc
// @ID          lineCallback
// @Summary     LINE webhook
// @Description Verifies X-Line-Signature, then links every user who followed or messaged the account and sends their personal links. Per-event failures never fail the delivery.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Line-Signature  header  string  true  "HMAC-SHA256 of the body under the channel secret"
//
// @Success     200  {object}  handlers.CallbackResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unreadable body"
// @Failure     401  {object}  handlers.ErrorResponse  "Signature mismatch"
// @Router      /callback [post]
func (h *Handlers) Callback(c *gin.Context) {
	if h.parse == nil || h.events == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "chat webhook not configured")
		return
	}
	events, err := h.parse(c.Request)
	if err != nil {
		if errors.Is(err, line.ErrInvalidSignature) {
			fail(c, http.StatusUnauthorized, ErrCodeInvalidSignature, "signature mismatch")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable webhook body")
		return
	}

	rep := h.events.HandleEvents(c.Request.Context(), events)
	middleware.LoggerFrom(c).Info().
		Int("events", len(events)).
		Int("handled", rep.Handled).
		Int("sent", rep.Sent).
		Int("failed", rep.Failed).
		Msg("webhook processed")
	ok(c, http.StatusOK, CallbackResponse{OK: true, OnboardingReport: rep})
}
