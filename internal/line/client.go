// Package line adapts the LINE Messaging API to the service layer: outbound
// push/reply text messages, profile lookup, and signed webhook parsing.
package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/tbourn/go-wellbeing-backend/internal/config"
	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

// ErrNotConfigured is returned by NewClient without an access token.
var ErrNotConfigured = errors.New("line: channel access token not configured")

// Error is a non-2xx answer from the Messaging API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("line api: status %d", e.Status)
	}
	return fmt.Sprintf("line api: status %d: %s", e.Status, e.Message)
}

// StatusCode implements services.StatusCoder.
func (e *Error) StatusCode() int { return e.Status }

// IsTransient reports whether err deserves a retry: 5xx, 429, timeouts and
// connection failures.
func IsTransient(err error) bool { return services.IsTransientError(err) }

// Client implements services.Messenger and services.ProfileSource.
type Client struct {
	bot *linebot.Client
}

// NewClient builds a client for cfg. hc may be nil to use http.DefaultClient.
func NewClient(cfg config.LineConfig, hc *http.Client) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	opts := []linebot.ClientOption{}
	if cfg.APIBaseURL != "" {
		opts = append(opts, linebot.WithEndpointBase(cfg.APIBaseURL))
	}
	if hc != nil {
		opts = append(opts, linebot.WithHTTPClient(hc))
	}
	bot, err := linebot.New(cfg.ChannelSecret, cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("line client: %w", err)
	}
	return &Client{bot: bot}, nil
}

// PushText sends text to a user id.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	_, err := c.bot.PushMessage(to, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return wrap(err)
}

// ReplyText answers an inbound event through its reply token.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	_, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return wrap(err)
}

// DisplayName returns the profile display name of a user.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	p, err := c.bot.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		return "", wrap(err)
	}
	return p.DisplayName, nil
}

// wrap turns SDK API errors into *Error so the dispatcher can classify them.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *linebot.APIError
	if errors.As(err, &apiErr) {
		e := &Error{Status: apiErr.Code}
		if apiErr.Response != nil {
			e.Message = apiErr.Response.Message
		}
		return e
	}
	return err
}
