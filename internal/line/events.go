package line

import (
	"errors"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

// ErrInvalidSignature is returned when X-Line-Signature does not match the
// body under the channel secret.
var ErrInvalidSignature = linebot.ErrInvalidSignature

// ParseEvents verifies the request signature and converts the delivered
// events. Nothing is returned unless the signature matches.
func ParseEvents(channelSecret string, r *http.Request) ([]services.ChatEvent, error) {
	if channelSecret == "" {
		return nil, ErrInvalidSignature
	}
	events, err := linebot.ParseRequest(channelSecret, r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, err
	}

	out := make([]services.ChatEvent, 0, len(events))
	for _, ev := range events {
		ce := services.ChatEvent{
			Type:       string(ev.Type),
			ReplyToken: ev.ReplyToken,
		}
		if ev.Source != nil {
			ce.SourceType = string(ev.Source.Type)
			ce.UserID = ev.Source.UserID
		}
		out = append(out, ce)
	}
	return out, nil
}
