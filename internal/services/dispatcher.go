// Package services – Dispatcher
//
// Dispatcher sends one text message to one chat-platform user. It makes at
// most two attempts: the second only after a transient failure (5xx, 429,
// timeout, connection error). A 4xx is permanent. The outcome is a value,
// never a panic or a rollback; callers decide whether to log or count it.
package services

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-wellbeing-backend/internal/observability"
)

// Messenger is the outbound chat-platform API.
type Messenger interface {
	PushText(ctx context.Context, to, text string) error
	ReplyText(ctx context.Context, replyToken, text string) error
}

// Message is one outbound notification.
type Message struct {
	// To is the chat-platform user id.
	To string
	// ReplyToken, when set, answers an inbound event instead of pushing.
	ReplyToken string
	Text       string
	// Trigger labels metrics: onboarding|daily|admin.
	Trigger string
}

// Dispatch statuses.
const (
	DispatchSent   = "sent"
	DispatchFailed = "failed"
)

// DispatchResult is the outcome of Send.
type DispatchResult struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Attempts int    `json:"attempts"`
}

// Err returns ErrDispatchFailure wrapped with the reason, or nil when sent.
func (r DispatchResult) Err() error {
	if r.Status == DispatchSent {
		return nil
	}
	return &dispatchError{reason: r.Reason}
}

type dispatchError struct{ reason string }

func (e *dispatchError) Error() string { return ErrDispatchFailure.Error() + ": " + e.reason }
func (e *dispatchError) Unwrap() error { return ErrDispatchFailure }

// Dispatcher wraps a Messenger with a per-attempt timeout and a single retry.
type Dispatcher struct {
	Messenger Messenger

	// Timeout bounds each attempt. Zero means no extra bound.
	Timeout time.Duration
	// RetryBackoff is the wait before the retry.
	RetryBackoff time.Duration
	// IsTransient classifies errors; nil uses IsTransientError.
	IsTransient func(error) bool
}

// StatusCoder is implemented by platform errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// IsTransientError reports whether err is worth one retry: timeouts,
// network errors, 5xx and 429. Cancellation of the caller is not.
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code >= 500 || code == 429
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// Send delivers msg. A reply token is used only on the first attempt: reply
// tokens are single-use, so a retry goes out as a push.
func (d *Dispatcher) Send(ctx context.Context, msg Message) DispatchResult {
	ctx, span := observability.Start(ctx, "Dispatcher", "Send",
		attribute.String("trigger", msg.Trigger),
		attribute.Bool("reply", msg.ReplyToken != ""),
	)
	defer span.End()

	res := d.send(ctx, msg)
	trigger := msg.Trigger
	if trigger == "" {
		trigger = "unknown"
	}
	observability.Dispatches.WithLabelValues(trigger, res.Status).Inc()
	span.SetAttributes(attribute.String("result", res.Status), attribute.Int("attempts", res.Attempts))
	return res
}

func (d *Dispatcher) send(ctx context.Context, msg Message) DispatchResult {
	if d == nil || d.Messenger == nil {
		return DispatchResult{Status: DispatchFailed, Reason: ErrNotConfigured.Error()}
	}
	if msg.To == "" && msg.ReplyToken == "" {
		return DispatchResult{Status: DispatchFailed, Reason: ErrEmptyPlatformID.Error()}
	}
	transient := d.IsTransient
	if transient == nil {
		transient = IsTransientError
	}

	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		err := d.attempt(ctx, msg, attempts)
		switch {
		case err == nil:
			return struct{}{}, nil
		case transient(err) && msg.To != "":
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(d.RetryBackoff)),
		backoff.WithMaxTries(2),
	)
	if err != nil {
		return DispatchResult{Status: DispatchFailed, Reason: err.Error(), Attempts: attempts}
	}
	return DispatchResult{Status: DispatchSent, Attempts: attempts}
}

func (d *Dispatcher) attempt(ctx context.Context, msg Message, n int) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	if msg.ReplyToken != "" && n == 1 {
		return d.Messenger.ReplyText(ctx, msg.ReplyToken, msg.Text)
	}
	return d.Messenger.PushText(ctx, msg.To, msg.Text)
}
