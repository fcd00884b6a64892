package line

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tbourn/go-wellbeing-backend/internal/services"
)

const webhookBody = `{"destination":"Uxxxxxxxx","events":[
 {"type":"follow","mode":"active","timestamp":1735689600000,"replyToken":"rt-follow",
  "source":{"type":"user","userId":"U1"},"webhookEventId":"01A","deliveryContext":{"isRedelivery":false}},
 {"type":"message","mode":"active","timestamp":1735689601000,"replyToken":"rt-msg",
  "source":{"type":"group","groupId":"G1","userId":"U2"},
  "message":{"id":"1","type":"text","text":"hi"},"webhookEventId":"01B","deliveryContext":{"isRedelivery":false}},
 {"type":"unfollow","mode":"active","timestamp":1735689602000,
  "source":{"type":"user","userId":"U3"},"webhookEventId":"01C","deliveryContext":{"isRedelivery":false}}
]}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body, signature string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewBufferString(body))
	if signature != "" {
		r.Header.Set("X-Line-Signature", signature)
	}
	return r
}

func TestParseEvents_Valid(t *testing.T) {
	got, err := ParseEvents("chan-secret", webhookRequest(webhookBody, sign("chan-secret", webhookBody)))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	want := []services.ChatEvent{
		{Type: services.EventFollow, SourceType: services.SourceUser, UserID: "U1", ReplyToken: "rt-follow"},
		{Type: services.EventMessage, SourceType: services.SourceGroup, UserID: "U2", ReplyToken: "rt-msg"},
		{Type: services.EventUnfollow, SourceType: services.SourceUser, UserID: "U3"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v; want %+v", i, got[i], want[i])
		}
	}
}

func TestParseEvents_EmptyList(t *testing.T) {
	body := `{"destination":"U","events":[]}`
	got, err := ParseEvents("s", webhookRequest(body, sign("s", body)))
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no events, got %v %v", got, err)
	}
}

func TestParseEvents_BadSignature(t *testing.T) {
	cases := map[string]struct{ secret, sig string }{
		"wrong secret":  {"chan-secret", sign("other", webhookBody)},
		"missing":       {"chan-secret", ""},
		"garbage":       {"chan-secret", "!!!"},
		"no secret set": {"", sign("", webhookBody)},
	}
	for name, tc := range cases {
		_, err := ParseEvents(tc.secret, webhookRequest(webhookBody, tc.sig))
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("%s: expected ErrInvalidSignature, got %v", name, err)
		}
	}
}
